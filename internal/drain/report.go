package drain

import "sort"

// Report is the compression report for a run: every template plus the
// overall statistics. Build one with Engine.Report at any point; the
// engine keeps ingesting afterwards, so streaming consumers can snapshot
// periodically.
type Report struct {
	InputLines      int `json:"input_lines"`
	UniqueTemplates int `json:"unique_templates"`
	TreeNodes       int `json:"tree_nodes"`

	// CompressionRatio is 1 - templates/lines, 0 for empty input.
	CompressionRatio float64 `json:"compression_ratio"`

	// EstimatedTokenReduction is the occurrence-weighted share of
	// pattern positions that were generalized to wildcards. It is a
	// heuristic for how much variable content the templates absorb, not
	// an exact inverse of any specific downstream tokenizer.
	EstimatedTokenReduction float64 `json:"estimated_token_reduction"`

	// DegradedLines counts lines absorbed after the cluster cap was hit.
	DegradedLines int `json:"degraded_lines"`

	// StrategyErrors counts lines the parsing strategy failed on.
	StrategyErrors int `json:"strategy_errors"`

	// Templates is sorted by descending occurrences, ties by ID.
	Templates []TemplateReport `json:"templates"`
}

// TemplateReport is one template's entry in the report.
type TemplateReport struct {
	ID          int                    `json:"id"`
	Pattern     string                 `json:"pattern"`
	Occurrences int                    `json:"occurrences"`
	Samples     [][]string             `json:"samples,omitempty"`
	FirstSeen   int                    `json:"first_seen"`
	LastSeen    int                    `json:"last_seen"`
	Meta        map[string]interface{} `json:"meta,omitempty"`
}

// Report builds the compression report from the current engine state.
func (e *Engine) Report() Report {
	r := Report{
		InputLines:      e.lines,
		UniqueTemplates: len(e.clusters),
		TreeNodes:       e.tree.size(),
		DegradedLines:   e.degradedLines,
		StrategyErrors:  e.strategyErrs,
	}

	if e.lines > 0 {
		r.CompressionRatio = 1 - float64(len(e.clusters))/float64(e.lines)
	}

	weightedWildcards := 0
	weightedTokens := 0
	r.Templates = make([]TemplateReport, 0, len(e.clusters))
	for _, c := range e.clusters {
		weightedWildcards += c.Occurrences * c.WildcardCount()
		weightedTokens += c.Occurrences * len(c.Tokens)
		r.Templates = append(r.Templates, TemplateReport{
			ID:          c.ID,
			Pattern:     c.Pattern(),
			Occurrences: c.Occurrences,
			Samples:     c.Samples,
			FirstSeen:   c.FirstSeen,
			LastSeen:    c.LastSeen,
			Meta:        c.Meta,
		})
	}
	if weightedTokens > 0 {
		r.EstimatedTokenReduction = float64(weightedWildcards) / float64(weightedTokens)
	}

	sort.SliceStable(r.Templates, func(i, j int) bool {
		if r.Templates[i].Occurrences != r.Templates[j].Occurrences {
			return r.Templates[i].Occurrences > r.Templates[j].Occurrences
		}
		return r.Templates[i].ID < r.Templates[j].ID
	})

	return r
}

// Top returns the first n templates of the report, or all of them when n
// is zero or negative.
func (r Report) Top(n int) []TemplateReport {
	if n <= 0 || n >= len(r.Templates) {
		return r.Templates
	}
	return r.Templates[:n]
}
