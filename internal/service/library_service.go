package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docask/docask/internal/answercache"
	"github.com/docask/docask/internal/embedcache"
	"github.com/docask/docask/internal/index"
	"github.com/docask/docask/internal/model"
	appErr "github.com/docask/docask/internal/pkg/errors"
	"github.com/docask/docask/internal/repo"
	"github.com/docask/docask/internal/retry"
)

// Summarizer is the generation slice LibraryService needs from the AI
// manager.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// LibraryService owns the document/embedding pair: ingest writes both in
// one transaction, delete removes both plus every cached answer built
// from the document. The similarity index mirrors the embeddings table
// and is rebuilt from it at startup.
type LibraryService struct {
	db         *sql.DB
	docs       *repo.DocumentRepo
	embeddings *repo.EmbeddingRepo
	idx        index.Index
	cache      *answercache.Cache
	summarizer Summarizer
	embedder   embedcache.Embedder
	retryCfg   retry.Config
	locks      *ownerLocks
}

func NewLibraryService(
	db *sql.DB,
	docs *repo.DocumentRepo,
	embeddings *repo.EmbeddingRepo,
	idx index.Index,
	cache *answercache.Cache,
	summarizer Summarizer,
	embedder embedcache.Embedder,
	retryCfg retry.Config,
) *LibraryService {
	return &LibraryService{
		db:         db,
		docs:       docs,
		embeddings: embeddings,
		idx:        idx,
		cache:      cache,
		summarizer: summarizer,
		embedder:   embedder,
		retryCfg:   retryCfg,
		locks:      newOwnerLocks(),
	}
}

// Ingest summarizes the text, embeds the summary and stores the
// document/embedding pair. Either both rows land or neither does; the
// in-memory index is only touched after the transaction commits, and its
// Put cannot fail because the dimension is validated up front.
func (s *LibraryService) Ingest(ctx context.Context, owner, title, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty document text", appErr.ErrInvalid)
	}
	if title == "" {
		title = "Untitled"
	}
	logger := logutil.GetLogger(ctx).With(zap.String("user_id", owner))

	summary, err := retry.Invoke(ctx, s.retryCfg, "summarize", func(ctx context.Context) (string, error) {
		return s.summarizer.Summarize(ctx, text)
	})
	if err != nil {
		return "", err
	}
	vector, err := retry.Invoke(ctx, s.retryCfg, "embed_document", func(ctx context.Context) ([]float32, error) {
		return s.embedder.EmbedDocument(ctx, summary)
	})
	if err != nil {
		return "", err
	}
	if len(vector) != s.idx.Dimensions() {
		return "", fmt.Errorf("%w: embed model returned %d, index is %d",
			appErr.ErrDimensionMismatch, len(vector), s.idx.Dimensions())
	}

	lock := s.locks.forOwner(owner)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	now := time.Now().Unix()
	doc := &model.Document{
		ID:      newID(),
		UserID:  owner,
		Title:   title,
		Content: text,
		Summary: summary,
		Ctime:   now,
	}
	emb := &model.DocumentEmbedding{
		DocumentID: doc.ID,
		UserID:     owner,
		Embedding:  vector,
		Ctime:      now,
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	if err := s.docs.CreateTx(ctx, tx, doc); err != nil {
		_ = tx.Rollback()
		return "", err
	}
	if err := s.embeddings.CreateTx(ctx, tx, emb); err != nil {
		_ = tx.Rollback()
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	if err := s.idx.Put(owner, doc.ID, vector); err != nil {
		return "", err
	}
	logger.Info("document ingested",
		zap.String("doc_id", doc.ID),
		zap.Int("content_chars", len(text)),
		zap.Int("summary_chars", len(summary)),
	)
	return doc.ID, nil
}

func (s *LibraryService) Get(ctx context.Context, owner, docID string) (*model.Document, error) {
	return s.docs.GetByID(ctx, owner, docID)
}

func (s *LibraryService) List(ctx context.Context, owner string) ([]model.DocumentMeta, error) {
	return s.docs.ListByUser(ctx, owner)
}

// Delete removes the pair and invalidates every cached answer that was
// built from the document. Once Delete returns, searches and reads no
// longer observe the document.
func (s *LibraryService) Delete(ctx context.Context, owner, docID string) error {
	lock := s.locks.forOwner(owner)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := s.docs.DeleteTx(ctx, tx, owner, docID); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := s.embeddings.DeleteTx(ctx, tx, owner, docID); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.idx.Delete(owner, docID)
	invalidated, err := s.cache.InvalidateByDoc(ctx, docID)
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("document deleted",
		zap.String("user_id", owner),
		zap.String("doc_id", docID),
		zap.Int64("cache_entries_invalidated", invalidated),
	)
	return nil
}

// RebuildIndex loads every stored embedding into the similarity index.
// Called once at startup, before the server accepts requests.
func (s *LibraryService) RebuildIndex(ctx context.Context) error {
	entries, err := s.embeddings.ListAll(ctx)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := s.idx.Put(entry.UserID, entry.DocumentID, entry.Embedding); err != nil {
			return fmt.Errorf("rebuild index for doc %s: %w", entry.DocumentID, err)
		}
	}
	logutil.GetLogger(ctx).Info("similarity index rebuilt", zap.Int("vectors", len(entries)))
	return nil
}
