package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"basegraph.app/gapengine/common/logger"
	"basegraph.app/gapengine/core/config"
	"basegraph.app/gapengine/internal/http/dto"
	"basegraph.app/gapengine/internal/model"
	"basegraph.app/gapengine/internal/queue"
	"basegraph.app/gapengine/internal/service"
	"basegraph.app/gapengine/internal/store/memstore"
	"github.com/spf13/cobra"
)

const localContentID = 1

type analyzeOptions struct {
	path          string
	title         string
	keyConcepts   []string
	criticalTerms []string
	updated       string
	json          bool
}

// localQueue holds submitted tasks in memory until they are run inline.
type localQueue struct {
	mu       sync.Mutex
	messages []queue.Message
}

func (q *localQueue) Enqueue(_ context.Context, msg queue.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, msg)
	return nil
}

func (q *localQueue) drain() []queue.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.messages
	q.messages = nil
	return out
}

func runAnalyze(cmd *cobra.Command, opts *analyzeOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger.SetupWriter(cfg, os.Stderr)

	chapter, err := loadChapter(opts)
	if err != nil {
		return err
	}

	engine, err := service.NewEngine(cfg.Analysis, nil)
	if err != nil {
		return err
	}

	mem := memstore.New()
	mem.PutChapter(chapter)
	q := &localQueue{}

	svc := service.NewGapAnalysisService(service.GapAnalysisDeps{
		Chapters:    mem.Chapters(),
		Jobs:        mem.Jobs(),
		Results:     mem.Results(),
		TxRunner:    service.NewDirectTxRunner(mem),
		Enqueuer:    q,
		Runner:      engine.Runner,
		Aggregator:  engine.Aggregator,
		Recommender: engine.Recommender,
		StalePolicy: cfg.Analysis.StaleResultPolicy,
	})

	if _, err := svc.Submit(ctx, chapter.ID); err != nil {
		return fmt.Errorf("submitting analysis: %w", err)
	}
	for _, msg := range q.drain() {
		if err := svc.Execute(ctx, msg.TaskID); err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}
	}

	result, err := svc.GetSummary(ctx, chapter.ID, nil)
	if err != nil {
		return fmt.Errorf("loading result: %w", err)
	}

	if opts.json {
		data, err := json.MarshalIndent(dto.ToGapAnalysisResponse(result, true), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	printSummary(cmd.OutOrStdout(), result, engine.Aggregator.Threshold())
	return nil
}

func loadChapter(opts *analyzeOptions) (model.Chapter, error) {
	body, err := os.ReadFile(opts.path)
	if err != nil {
		return model.Chapter{}, fmt.Errorf("reading chapter: %w", err)
	}

	updated := time.Now().UTC()
	if opts.updated != "" {
		updated, err = time.Parse("2006-01-02", opts.updated)
		if err != nil {
			return model.Chapter{}, fmt.Errorf("invalid --updated %q: %w", opts.updated, err)
		}
	} else if info, statErr := os.Stat(opts.path); statErr == nil {
		updated = info.ModTime().UTC()
	}

	return model.Chapter{
		ID:            localContentID,
		Version:       1,
		Title:         opts.title,
		Body:          string(body),
		KeyConcepts:   opts.keyConcepts,
		CriticalTerms: opts.criticalTerms,
		UpdatedAt:     updated,
	}, nil
}

func printSummary(w io.Writer, r *model.GapAnalysisResult, threshold float64) {
	verdict := "ok"
	if r.RequiresRevision {
		verdict = "requires revision"
	}
	fmt.Fprintf(w, "Completeness: %.2f (threshold %.2f, %s)\n", r.CompletenessScore, threshold, verdict)
	if r.LowConfidence {
		fmt.Fprintln(w, "Low confidence: fewer than two dimensions could be scored")
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Dimensions:")
	for _, category := range model.GapCategories {
		fmt.Fprintf(w, "  %-22s %-9s %d gaps\n", category, r.DimensionStatuses[category], r.GapCategoriesSummary[category])
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Gaps: %d", r.TotalGaps)
	severities := make([]string, 0, len(r.SeverityDistribution))
	for s, n := range r.SeverityDistribution {
		severities = append(severities, fmt.Sprintf("%s=%d", s, n))
	}
	sort.Strings(severities)
	if len(severities) > 0 {
		fmt.Fprintf(w, " (%v)", severities)
	}
	fmt.Fprintln(w)

	if len(r.TopRecommendations) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Recommendations:")
	for _, rec := range r.TopRecommendations {
		fmt.Fprintf(w, "  %d. [%s, %s effort] %s\n", rec.Priority, rec.Severity, rec.EstimatedEffort, rec.Description)
	}
}
