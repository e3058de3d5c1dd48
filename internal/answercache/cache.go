// Package answercache maps a fingerprint of (owner, normalized question)
// to a previously generated answer. Entries live in the answer_cache
// table, expire after a fixed TTL checked lazily on read, and are
// invalidated whenever a document they were built from is deleted.
package answercache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docask/docask/internal/model"
	appErr "github.com/docask/docask/internal/pkg/errors"
	"github.com/docask/docask/internal/repo"
)

type Cache struct {
	store *repo.AnswerCacheRepo
	ttl   time.Duration
	now   func() time.Time
}

func New(store *repo.AnswerCacheRepo, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Normalize folds case and collapses whitespace so repeated phrasings of
// the same intent map to one key. Total: any input yields a defined key.
func Normalize(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// Fingerprint always includes the owner: identical questions from
// different owners must never share an entry.
func Fingerprint(owner, query string) string {
	sum := sha256.Sum256([]byte(owner + "\x00" + Normalize(query)))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) Get(ctx context.Context, owner, query string) (*model.CachedAnswer, bool, error) {
	fingerprint := Fingerprint(owner, query)
	entry, err := c.store.Get(ctx, fingerprint)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	age := c.now().Unix() - entry.Ctime
	if age > int64(c.ttl.Seconds()) {
		logutil.GetLogger(ctx).Debug("cache entry expired",
			zap.String("fingerprint", fingerprint[:16]),
			zap.Int64("age_seconds", age),
		)
		if err := c.store.DeleteStale(ctx, fingerprint, entry.Ctime); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	return entry, true, nil
}

func (c *Cache) Put(ctx context.Context, owner, query, answer string, docIDs []string) error {
	entry := &model.CachedAnswer{
		Fingerprint: Fingerprint(owner, query),
		UserID:      owner,
		Question:    Normalize(query),
		Answer:      answer,
		DocIDs:      docIDs,
		Ctime:       c.now().Unix(),
	}
	return c.store.Upsert(ctx, entry)
}

// InvalidateByDoc drops every cached answer whose retrieval set includes
// docID, so a deleted document can never back a served answer.
func (c *Cache) InvalidateByDoc(ctx context.Context, docID string) (int64, error) {
	return c.store.DeleteByDoc(ctx, docID)
}

// SweepExpired removes entries past the TTL; the cron job calls this so
// rarely-read entries do not accumulate.
func (c *Cache) SweepExpired(ctx context.Context) (int64, error) {
	cutoff := c.now().Add(-c.ttl).Unix()
	return c.store.DeleteExpired(ctx, cutoff)
}
