package tools

import (
	"context"
	"strings"
)

const defaultKnowledgeQuery = "高效廣告 優化 成長"

type KnowledgeExamples struct {
	Available bool      `json:"available"`
	Examples  []Snippet `json:"examples,omitempty"`
}

// LoadKnowledgeExamples returns up to three similar cases for the agent's
// knowledge query. Search failures degrade to an unavailable result.
func LoadKnowledgeExamples(ctx context.Context, deps *Deps, _ NoArgs) (KnowledgeExamples, error) {
	if deps.Knowledge == nil {
		return KnowledgeExamples{}, nil
	}
	query := deps.Settings.KnowledgeQuery
	if query == "" {
		query = defaultKnowledgeQuery
	}
	snippets, err := deps.Knowledge.Search(ctx, query, 3)
	if err != nil || len(snippets) == 0 {
		return KnowledgeExamples{}, nil
	}
	return KnowledgeExamples{Available: true, Examples: snippets}, nil
}

type SearchArgs struct {
	Query string `json:"query" jsonschema_description:"Free-text description of the ads to look for" jsonschema:"required"`
	TopK  int    `json:"top_k,omitempty" jsonschema_description:"Number of results" jsonschema:"minimum=1,maximum=10"`
}

type SimilarAds struct {
	Query   string    `json:"query"`
	Results []Snippet `json:"results"`
}

// SearchSimilarAds queries the knowledge base directly. Unlike
// LoadKnowledgeExamples it fails when no knowledge base is configured.
func SearchSimilarAds(ctx context.Context, deps *Deps, args SearchArgs) (SimilarAds, error) {
	if deps.Knowledge == nil {
		return SimilarAds{}, ErrNoKnowledge
	}
	q := strings.TrimSpace(args.Query)
	k := args.TopK
	if k <= 0 {
		k = 3
	}
	snippets, err := deps.Knowledge.Search(ctx, q, k)
	if err != nil {
		return SimilarAds{}, err
	}
	if snippets == nil {
		snippets = []Snippet{}
	}
	return SimilarAds{Query: q, Results: snippets}, nil
}
