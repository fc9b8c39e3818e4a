// Package recommend turns a merged gap list into a short, prioritized list of
// actions.
package recommend

import (
	"fmt"
	"sort"

	"basegraph.app/gapengine/internal/model"
	"basegraph.app/gapengine/internal/textnorm"
)

const (
	DefaultLimit = 5

	// Evidence token sets at least this similar describe the same finding.
	duplicateJaccard = 0.8
)

// categoryPriority breaks ties between groups of equal severity.
var categoryPriority = []model.GapCategory{
	model.GapCategoryCriticalInformation,
	model.GapCategoryContentCompleteness,
	model.GapCategorySourceCoverage,
	model.GapCategoryTemporalCoverage,
	model.GapCategorySectionBalance,
}

var actions = map[model.GapCategory]model.RecommendationAction{
	model.GapCategoryContentCompleteness: model.ActionAddMissingConcepts,
	model.GapCategorySourceCoverage:      model.ActionAddSupportingSources,
	model.GapCategorySectionBalance:      model.ActionRebalanceSections,
	model.GapCategoryTemporalCoverage:    model.ActionCiteRecentSources,
	model.GapCategoryCriticalInformation: model.ActionAddCriticalInformation,
}

var verbs = map[model.GapCategory]string{
	model.GapCategoryContentCompleteness: "Cover missing material",
	model.GapCategorySourceCoverage:      "Back claims with sources",
	model.GapCategorySectionBalance:      "Rebalance section lengths",
	model.GapCategoryTemporalCoverage:    "Cite more recent sources",
	model.GapCategoryCriticalInformation: "Add critical information",
}

type Generator struct {
	limit int
}

func NewGenerator(limit int) *Generator {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Generator{limit: limit}
}

type groupKey struct {
	category model.GapCategory
	severity model.GapSeverity
}

// group is one (category, severity) bucket after near-duplicates have been
// folded into representatives.
type group struct {
	key             groupKey
	representatives []representative
	gapIDs          []string
}

type representative struct {
	gap    model.Gap
	tokens map[string]struct{}
}

// Generate is deterministic for a given input order: equal inputs always yield
// equal recommendations.
func (g *Generator) Generate(gaps []model.Gap) []model.Recommendation {
	groups := make(map[groupKey]*group)
	var order []groupKey

	for _, gap := range gaps {
		key := groupKey{category: gap.Category, severity: gap.Severity}
		grp, ok := groups[key]
		if !ok {
			grp = &group{key: key}
			groups[key] = grp
			order = append(order, key)
		}
		grp.add(gap)
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.severity.Rank() != b.severity.Rank() {
			return a.severity.Rank() < b.severity.Rank()
		}
		return categoryRank(a.category) < categoryRank(b.category)
	})

	if len(order) > g.limit {
		order = order[:g.limit]
	}

	recs := make([]model.Recommendation, 0, len(order))
	for i, key := range order {
		grp := groups[key]
		recs = append(recs, model.Recommendation{
			Priority:        i + 1,
			Action:          actionFor(key.category),
			Category:        key.category,
			Severity:        key.severity,
			Description:     grp.describe(),
			EstimatedEffort: effortFor(len(grp.gapIDs)),
			GapIDs:          grp.gapIDs,
		})
	}
	return recs
}

func (grp *group) add(gap model.Gap) {
	grp.gapIDs = append(grp.gapIDs, gap.ID)

	tokens := tokenSet(gap.Evidence)
	if len(tokens) == 0 {
		tokens = tokenSet(gap.Description)
	}
	for _, rep := range grp.representatives {
		if nearDuplicate(rep.tokens, tokens) {
			return
		}
	}
	grp.representatives = append(grp.representatives, representative{gap: gap, tokens: tokens})
}

func (grp *group) describe() string {
	first := grp.representatives[0].gap.Description
	switch n := len(grp.representatives); n {
	case 1:
		return fmt.Sprintf("%s: %s", verbFor(grp.key.category), first)
	case 2:
		return fmt.Sprintf("%s: %s (and 1 similar issue)", verbFor(grp.key.category), first)
	default:
		return fmt.Sprintf("%s: %s (and %d similar issues)", verbFor(grp.key.category), first, n-1)
	}
}

func nearDuplicate(a, b map[string]struct{}) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	shared := 0
	for t := range a {
		if _, ok := b[t]; ok {
			shared++
		}
	}
	if shared == len(a) || shared == len(b) {
		return true
	}
	union := len(a) + len(b) - shared
	return float64(shared)/float64(union) >= duplicateJaccard
}

func tokenSet(s string) map[string]struct{} {
	tokens := textnorm.Tokens(s)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func categoryRank(c model.GapCategory) int {
	for i, known := range categoryPriority {
		if c == known {
			return i
		}
	}
	return len(categoryPriority)
}

func actionFor(c model.GapCategory) model.RecommendationAction {
	if a, ok := actions[c]; ok {
		return a
	}
	return model.ActionReviewContent
}

func verbFor(c model.GapCategory) string {
	if v, ok := verbs[c]; ok {
		return v
	}
	return "Review content"
}

func effortFor(gapCount int) model.EstimatedEffort {
	switch {
	case gapCount >= 5:
		return model.EstimatedEffortHigh
	case gapCount >= 2:
		return model.EstimatedEffortMedium
	default:
		return model.EstimatedEffortLow
	}
}
