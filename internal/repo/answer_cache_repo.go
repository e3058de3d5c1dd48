package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/didi/gendry/builder"

	"github.com/docask/docask/internal/model"
	appErr "github.com/docask/docask/internal/pkg/errors"
)

type AnswerCacheRepo struct {
	db *sql.DB
}

func NewAnswerCacheRepo(db *sql.DB) *AnswerCacheRepo {
	return &AnswerCacheRepo{db: db}
}

func (r *AnswerCacheRepo) Upsert(ctx context.Context, entry *model.CachedAnswer) error {
	blob, err := json.Marshal(entry.DocIDs)
	if err != nil {
		return err
	}
	data := map[string]interface{}{
		"fingerprint": entry.Fingerprint,
		"user_id":     entry.UserID,
		"question":    entry.Question,
		"answer":      entry.Answer,
		"doc_ids":     string(blob),
		"ctime":       entry.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("answer_cache", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr = strings.Replace(sqlStr, "INSERT INTO", "INSERT OR REPLACE INTO", 1)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *AnswerCacheRepo) Get(ctx context.Context, fingerprint string) (*model.CachedAnswer, error) {
	where := map[string]interface{}{
		"fingerprint": fingerprint,
	}
	sqlStr, args, err := builder.BuildSelect("answer_cache", where, []string{"fingerprint", "user_id", "question", "answer", "doc_ids", "ctime"})
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	var entry model.CachedAnswer
	var blob string
	if err := row.Scan(&entry.Fingerprint, &entry.UserID, &entry.Question, &entry.Answer, &blob, &entry.Ctime); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(blob), &entry.DocIDs); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *AnswerCacheRepo) Delete(ctx context.Context, fingerprint string) error {
	where := map[string]interface{}{
		"fingerprint": fingerprint,
	}
	sqlStr, args, err := builder.BuildDelete("answer_cache", where)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// DeleteStale removes the entry only if it still carries the observed
// ctime, so an expiry delete cannot drop a fresh entry written under the
// same fingerprint in between read and delete.
func (r *AnswerCacheRepo) DeleteStale(ctx context.Context, fingerprint string, ctime int64) error {
	where := map[string]interface{}{
		"fingerprint": fingerprint,
		"ctime":       ctime,
	}
	sqlStr, args, err := builder.BuildDelete("answer_cache", where)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// DeleteByDoc removes every entry whose retrieval set references docID.
// doc_ids is a JSON array of quoted ids, so a quoted LIKE match is exact.
func (r *AnswerCacheRepo) DeleteByDoc(ctx context.Context, docID string) (int64, error) {
	pattern := fmt.Sprintf("%%%q%%", docID)
	result, err := r.db.ExecContext(ctx, "DELETE FROM answer_cache WHERE doc_ids LIKE ?", pattern)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteExpired removes entries created at or before cutoff (unix seconds).
func (r *AnswerCacheRepo) DeleteExpired(ctx context.Context, cutoff int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM answer_cache WHERE ctime <= ?", cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
