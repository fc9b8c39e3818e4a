// Package scorer holds the five analysis dimensions and the harness that runs
// them concurrently under a per-scorer timeout.
//
// A scorer is a pure function of a chapter snapshot: no I/O, deterministic for
// a fixed Content, and it never panics on malformed input. When it cannot do
// its job properly it returns a degraded result with a best-effort score and a
// gap explaining why.
package scorer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"basegraph.app/gapengine/internal/model"
)

var (
	ErrTimeout       = errors.New("scorer timed out")
	ErrCrashed       = errors.New("scorer crashed")
	ErrNotRegistered = errors.New("no scorer registered for dimension")
)

// Scorer evaluates one dimension of a chapter.
type Scorer interface {
	Category() model.GapCategory
	Score(ctx context.Context, content Content) model.DimensionResult
}

// Content is the snapshot handed to every scorer of a job. The document is
// parsed once; ParseErr is set when that failed.
type Content struct {
	Chapter  model.Chapter
	Document *Document
	ParseErr error
}

func NewContent(chapter model.Chapter) Content {
	doc, err := ParseDocument(chapter.Title, chapter.Body)
	return Content{Chapter: chapter, Document: doc, ParseErr: err}
}

func (c Content) Ref() model.ContentRef {
	return c.Chapter.Ref()
}

type Options struct {
	// Chapters shorter than this are reported as incomplete.
	MinWords int
	// Sections shorter than this are not expected to carry citations.
	MinCitedSectionWords int
	// Sources newer than UpdatedAt minus this window count as recent.
	RecencyWindowYears int
}

func DefaultOptions() Options {
	return Options{
		MinWords:             800,
		MinCitedSectionWords: 80,
		RecencyWindowYears:   5,
	}
}

// NewSet returns one scorer per dimension in model.GapCategories order.
func NewSet(opts Options) []Scorer {
	defaults := DefaultOptions()
	if opts.MinWords <= 0 {
		opts.MinWords = defaults.MinWords
	}
	if opts.MinCitedSectionWords <= 0 {
		opts.MinCitedSectionWords = defaults.MinCitedSectionWords
	}
	if opts.RecencyWindowYears <= 0 {
		opts.RecencyWindowYears = defaults.RecencyWindowYears
	}

	return []Scorer{
		NewContentCompleteness(opts.MinWords),
		NewSourceCoverage(opts.MinCitedSectionWords),
		NewSectionBalance(),
		NewTemporalCoverage(opts.RecencyWindowYears),
		NewCriticalInformation(),
	}
}

// gapID is stable for a given dimension and finding so reruns over the same
// snapshot produce identical ids.
func gapID(category model.GapCategory, key string) string {
	sum := sha256.Sum256([]byte(string(category) + "\x00" + key))
	return fmt.Sprintf("%s-%s", category, hex.EncodeToString(sum[:6]))
}

func newGap(category model.GapCategory, severity model.GapSeverity, description, evidence string) model.Gap {
	return model.Gap{
		ID:          gapID(category, string(severity)+"\x00"+description+"\x00"+evidence),
		Category:    category,
		Severity:    severity,
		Description: description,
		Evidence:    evidence,
	}
}

func scored(category model.GapCategory, score float64, gaps []model.Gap) model.DimensionResult {
	return model.DimensionResult{
		Category: category,
		Score:    clamp01(score),
		Gaps:     nonNil(gaps),
		Status:   model.DimensionStatusOK,
	}
}

func degraded(category model.GapCategory, score float64, gaps []model.Gap, reason string) model.DimensionResult {
	return model.DimensionResult{
		Category: category,
		Score:    clamp01(score),
		Gaps:     nonNil(gaps),
		Status:   model.DimensionStatusDegraded,
		Error:    reason,
	}
}

func failed(category model.GapCategory, err error) model.DimensionResult {
	return model.DimensionResult{
		Category: category,
		Score:    0,
		Gaps:     []model.Gap{},
		Status:   model.DimensionStatusFailed,
		Error:    err.Error(),
	}
}

// unreadable covers the inputs no scorer can work with: a body that failed to
// parse or holds no text at all.
func unreadable(category model.GapCategory, c Content) (model.DimensionResult, bool) {
	if c.ParseErr != nil || c.Document == nil {
		reason := "chapter body could not be parsed"
		if c.ParseErr != nil {
			reason = c.ParseErr.Error()
		}
		gap := newGap(category, model.GapSeverityHigh, "Chapter body could not be parsed", reason)
		return degraded(category, 0, []model.Gap{gap}, reason), true
	}
	if c.Document.Words == 0 {
		gap := newGap(category, model.GapSeverityHigh, "Chapter has no content", "")
		return degraded(category, 0, []model.Gap{gap}, "empty chapter body"), true
	}
	return model.DimensionResult{}, false
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func nonNil(gaps []model.Gap) []model.Gap {
	if gaps == nil {
		return []model.Gap{}
	}
	return gaps
}
