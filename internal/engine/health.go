package engine

import (
	"context"
	"math"
	"sort"

	"ownnews/internal/core"
	"ownnews/internal/taxonomy"
)

// InfoHealth returns the major-level diversity profile of the user's
// positive viewing history.
func (e *Engine) InfoHealth(ctx context.Context) (core.HealthReport, error) {
	history, err := e.log.PositiveArticles(ctx, e.userID, positiveHistoryLimit)
	if err != nil {
		return core.HealthReport{}, err
	}
	return buildReport(majorLabels(history), true), nil
}

// HierarchicalHealth computes the diversity profile at all three taxonomy
// levels over the same history.
func (e *Engine) HierarchicalHealth(ctx context.Context) (core.HierarchicalHealth, error) {
	history, err := e.log.PositiveArticles(ctx, e.userID, positiveHistoryLimit)
	if err != nil {
		return core.HierarchicalHealth{}, err
	}
	return core.HierarchicalHealth{
		Major:       buildReport(majorLabels(history), true),
		Medium:      buildReport(mediumLabels(history), false),
		Minor:       buildReport(minorLabels(history), false),
		TotalViewed: len(history),
	}, nil
}

// RecordHealthSnapshot persists today's health profile. Keyed on the
// calendar date, so calling twice in one day overwrites the same row.
func (e *Engine) RecordHealthSnapshot(ctx context.Context) error {
	detail, err := e.HierarchicalHealth(ctx)
	if err != nil {
		return err
	}
	return e.health.Upsert(ctx, core.HealthSnapshot{
		UserID:      e.userID,
		ScoreDate:   e.now().Format("2006-01-02"),
		Diversity:   detail.Major.DiversityScore,
		BiasRatio:   detail.Major.DominantRatio,
		TopCategory: detail.Major.DominantCategory,
		Detail:      detail,
	})
}

// HealthHistory returns the last `days` snapshots, oldest first.
func (e *Engine) HealthHistory(ctx context.Context, days int) ([]core.HealthSnapshot, error) {
	return e.health.History(ctx, e.userID, days)
}

// majorLabels gathers the comma-split category tags; one article can
// contribute several.
func majorLabels(articles []core.Article) []string {
	var labels []string
	for _, a := range articles {
		labels = append(labels, taxonomy.SplitMajor(a.Category)...)
	}
	return labels
}

// mediumLabels gathers one medium tag per article, preferring the cached
// column and falling back to title keyword classification.
func mediumLabels(articles []core.Article) []string {
	labels := make([]string, 0, len(articles))
	for _, a := range articles {
		if a.CategoryMedium != "" {
			labels = append(labels, a.CategoryMedium)
			continue
		}
		labels = append(labels, taxonomy.ClassifyMedium(a.Title, a.Category))
	}
	return labels
}

// minorLabels gathers the fine-grained keywords, preferring the cached
// column and falling back to regex extraction over titles.
func minorLabels(articles []core.Article) []string {
	var labels []string
	for _, a := range articles {
		if len(a.CategoryMinor) > 0 {
			labels = append(labels, a.CategoryMinor...)
			continue
		}
		labels = append(labels, taxonomy.ExtractMinorKeywords(a.Title)...)
	}
	return labels
}

// buildReport computes the diversity profile of a label multiset.
// Missing-category reporting applies at the major level only.
func buildReport(labels []string, withMissing bool) core.HealthReport {
	report := core.HealthReport{TotalViewed: len(labels)}

	counts := make(map[string]int)
	for _, l := range labels {
		counts[l]++
	}

	report.Distribution = make([]core.CategoryCount, 0, len(counts))
	for label, n := range counts {
		report.Distribution = append(report.Distribution, core.CategoryCount{Category: label, Count: n})
	}
	sort.Slice(report.Distribution, func(i, j int) bool {
		if report.Distribution[i].Count != report.Distribution[j].Count {
			return report.Distribution[i].Count > report.Distribution[j].Count
		}
		return report.Distribution[i].Category < report.Distribution[j].Category
	})

	if len(report.Distribution) > 0 {
		report.DominantCategory = report.Distribution[0].Category
		report.DominantRatio = float64(report.Distribution[0].Count) / float64(len(labels))
	}
	report.DiversityScore = diversityScore(counts, len(labels))
	report.BiasLevel = biasLevel(report.DominantRatio)

	if withMissing {
		for _, cat := range taxonomy.OnboardingCategories {
			if _, ok := counts[cat]; !ok {
				report.MissingCategories = append(report.MissingCategories, cat)
			}
		}
	}
	return report
}

// diversityScore is the normalized Shannon entropy of the distribution,
// floored to an integer in [0, 100]. One or zero distinct labels score 0;
// a uniform distribution over two or more labels scores exactly 100.
func diversityScore(counts map[string]int, total int) int {
	if len(counts) <= 1 || total == 0 {
		return 0
	}
	var entropy float64
	for _, n := range counts {
		p := float64(n) / float64(total)
		entropy -= p * math.Log2(p)
	}
	maxEntropy := math.Log2(float64(len(counts)))
	// The epsilon absorbs float error so a uniform distribution hits 100.
	return int(math.Floor(100*entropy/maxEntropy + 1e-9))
}

// biasLevel maps the dominant label's share onto the ordinal tag shown to
// the user.
func biasLevel(dominantRatio float64) string {
	switch {
	case dominantRatio > 0.6:
		return "偏食（強）"
	case dominantRatio > 0.4:
		return "やや偏り"
	default:
		return "バランス良好"
	}
}
