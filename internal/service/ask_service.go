package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docask/docask/internal/answercache"
	"github.com/docask/docask/internal/conversation"
	"github.com/docask/docask/internal/embedcache"
	"github.com/docask/docask/internal/index"
	appErr "github.com/docask/docask/internal/pkg/errors"
	"github.com/docask/docask/internal/queryrouter"
	"github.com/docask/docask/internal/repo"
	"github.com/docask/docask/internal/retry"
)

const noDocumentsAnswer = "I could not find any relevant documents in your collection for that question."

// Generator is the answering slice AskService needs from the AI manager.
type Generator interface {
	Answer(ctx context.Context, question string, contextDocs []string, history []conversation.Turn) (string, error)
}

// AskResult carries the answer plus enough pipeline detail for the
// caller to see how it was produced.
type AskResult struct {
	Answer    string   `json:"answer"`
	Cached    bool     `json:"cached"`
	QueryType string   `json:"query_type"`
	Strategy  string   `json:"strategy"`
	DocIDs    []string `json:"doc_ids"`
}

// AskService runs the question pipeline: cache check, query routing,
// summary-vector retrieval, answering over full texts, then caching the
// result. Conversation history feeds generation only, never retrieval
// or the cache key.
type AskService struct {
	docs     *repo.DocumentRepo
	idx      index.Index
	cache    *answercache.Cache
	embedder embedcache.Embedder
	gen      Generator
	tracker  *conversation.Tracker
	retryCfg retry.Config
}

func NewAskService(
	docs *repo.DocumentRepo,
	idx index.Index,
	cache *answercache.Cache,
	embedder embedcache.Embedder,
	gen Generator,
	tracker *conversation.Tracker,
	retryCfg retry.Config,
) *AskService {
	return &AskService{
		docs:     docs,
		idx:      idx,
		cache:    cache,
		embedder: embedder,
		gen:      gen,
		tracker:  tracker,
		retryCfg: retryCfg,
	}
}

func (s *AskService) Ask(ctx context.Context, owner, question string) (*AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", appErr.ErrInvalid)
	}
	logger := logutil.GetLogger(ctx).With(zap.String("user_id", owner))
	route := queryrouter.Plan(question)

	if hit, ok, err := s.cache.Get(ctx, owner, question); err != nil {
		return nil, err
	} else if ok {
		logger.Info("answer served from cache", zap.String("query_type", string(route.QueryType)))
		return &AskResult{
			Answer:    hit.Answer,
			Cached:    true,
			QueryType: string(route.QueryType),
			Strategy:  string(route.Strategy),
			DocIDs:    hit.DocIDs,
		}, nil
	}

	vector, err := retry.Invoke(ctx, s.retryCfg, "embed_query", func(ctx context.Context) ([]float32, error) {
		return s.embedder.EmbedQuery(ctx, question)
	})
	if err != nil {
		return nil, err
	}
	hits, err := s.idx.Search(owner, vector, route.TopK, route.SimilarityThreshold)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		logger.Info("no documents matched", zap.String("query_type", string(route.QueryType)))
		return &AskResult{
			Answer:    noDocumentsAnswer,
			QueryType: string(route.QueryType),
			Strategy:  string(route.Strategy),
		}, nil
	}

	docIDs := make([]string, 0, len(hits))
	for _, h := range hits {
		docIDs = append(docIDs, h.DocID)
	}
	docs, err := s.docs.GetByIDs(ctx, owner, docIDs)
	if err != nil {
		return nil, err
	}
	// Answer from full texts in retrieval order.
	byID := make(map[string]string, len(docs))
	for _, d := range docs {
		byID[d.ID] = d.Content
	}
	contextDocs := make([]string, 0, len(docIDs))
	answered := make([]string, 0, len(docIDs))
	for _, id := range docIDs {
		if content, ok := byID[id]; ok {
			contextDocs = append(contextDocs, content)
			answered = append(answered, id)
		}
	}

	history := s.tracker.Recent(owner)
	answer, err := retry.Invoke(ctx, s.retryCfg, "generate_answer", func(ctx context.Context) (string, error) {
		return s.gen.Answer(ctx, question, contextDocs, history)
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.Put(ctx, owner, question, answer, answered); err != nil {
		return nil, err
	}
	s.tracker.Append(owner, conversation.RoleUser, question)
	s.tracker.Append(owner, conversation.RoleAssistant, answer)
	logger.Info("answer generated",
		zap.String("query_type", string(route.QueryType)),
		zap.String("strategy", string(route.Strategy)),
		zap.Int("docs_used", len(answered)),
	)
	return &AskResult{
		Answer:    answer,
		QueryType: string(route.QueryType),
		Strategy:  string(route.Strategy),
		DocIDs:    answered,
	}, nil
}

// Explain returns the routing decision for a question without running
// retrieval or generation.
func (s *AskService) Explain(question string) queryrouter.Route {
	return queryrouter.Plan(question)
}

// ClearHistory drops the owner's conversation window.
func (s *AskService) ClearHistory(owner string) {
	s.tracker.Clear(owner)
}
