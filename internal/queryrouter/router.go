// Package queryrouter classifies free-text questions into a small closed
// set of query types and maps each type to a retrieval strategy. The
// classifier is a pure function over a fixed keyword table, so it is
// deterministic and safe for concurrent use; swapping in a learned
// classifier later only means replacing Classify.
package queryrouter

import "strings"

type QueryType string

const (
	TypeFactual    QueryType = "factual"
	TypeAnalytical QueryType = "analytical"
	TypeProcedural QueryType = "procedural"
	TypeConceptual QueryType = "conceptual"
	TypeComparison QueryType = "comparison"
)

type Strategy string

const (
	StrategyPrecise       Strategy = "precise"
	StrategyBroad         Strategy = "broad"
	StrategyComprehensive Strategy = "comprehensive"
)

// Route is the retrieval plan for one question.
type Route struct {
	QueryType           QueryType `json:"query_type"`
	Strategy            Strategy  `json:"strategy"`
	TopK                int       `json:"top_k"`
	SimilarityThreshold float32   `json:"similarity_threshold"`
}

// classification order doubles as the tie-break order: when two types
// collect the same keyword count, the earlier one wins
var typeOrder = []QueryType{
	TypeFactual,
	TypeAnalytical,
	TypeProcedural,
	TypeConceptual,
	TypeComparison,
}

var keywords = map[QueryType][]string{
	TypeFactual: {
		"who", "what time", "when", "where", "which",
		"how many", "how much", "date", "deadline", "percent",
	},
	TypeAnalytical: {
		"why", "how does", "how do", "reason", "explain",
		"analyze", "analyse", "what's behind",
	},
	TypeProcedural: {
		"how to", "how can i", "steps", "instruction",
		"guide", "tutorial", "how do i use",
	},
	TypeConceptual: {
		"what is", "what are", "definition", "define",
		"concept", "term", "meaning",
	},
	TypeComparison: {
		"compare", "difference", "differ", "similarity", "vs",
		"versus", "better", "worse", "advantage", "disadvantage",
	},
}

// The threshold stays 0.0 across all strategies: summary embeddings score
// lower against queries than full text would, so a similarity floor would
// drop valid matches. Ranking relies on the topK cutoff alone.
var strategies = map[Strategy]Route{
	StrategyPrecise:       {Strategy: StrategyPrecise, TopK: 3, SimilarityThreshold: 0},
	StrategyBroad:         {Strategy: StrategyBroad, TopK: 7, SimilarityThreshold: 0},
	StrategyComprehensive: {Strategy: StrategyComprehensive, TopK: 10, SimilarityThreshold: 0},
}

var typeToStrategy = map[QueryType]Strategy{
	TypeFactual:    StrategyPrecise,
	TypeAnalytical: StrategyBroad,
	TypeProcedural: StrategyBroad,
	TypeConceptual: StrategyBroad,
	TypeComparison: StrategyComprehensive,
}

// Classify picks the query type with the highest keyword count.
// A question matching nothing falls back to analytical, which routes to
// the broad strategy.
func Classify(query string) QueryType {
	lowered := strings.ToLower(query)
	best := TypeAnalytical
	bestScore := 0
	for _, qt := range typeOrder {
		score := 0
		for _, kw := range keywords[qt] {
			if strings.Contains(lowered, kw) {
				score++
			}
		}
		if score > bestScore {
			best = qt
			bestScore = score
		}
	}
	return best
}

// RouteFor is a pure lookup from query type to strategy parameters.
func RouteFor(qt QueryType) Route {
	strategy, ok := typeToStrategy[qt]
	if !ok {
		strategy = StrategyBroad
	}
	route := strategies[strategy]
	route.QueryType = qt
	return route
}

// Plan classifies and routes in one step.
func Plan(query string) Route {
	return RouteFor(Classify(query))
}
