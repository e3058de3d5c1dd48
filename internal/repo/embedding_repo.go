package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/didi/gendry/builder"

	"github.com/docask/docask/internal/model"
)

type EmbeddingRepo struct {
	db *sql.DB
}

func NewEmbeddingRepo(db *sql.DB) *EmbeddingRepo {
	return &EmbeddingRepo{db: db}
}

func (r *EmbeddingRepo) Create(ctx context.Context, emb *model.DocumentEmbedding) error {
	return r.CreateTx(ctx, r.db, emb)
}

func (r *EmbeddingRepo) CreateTx(ctx context.Context, ex execer, emb *model.DocumentEmbedding) error {
	blob, err := json.Marshal(emb.Embedding)
	if err != nil {
		return err
	}
	data := map[string]interface{}{
		"document_id": emb.DocumentID,
		"user_id":     emb.UserID,
		"embedding":   blob,
		"ctime":       emb.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("document_embeddings", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, sqlStr, args...)
	return err
}

// ListAll feeds the index rebuild at startup.
func (r *EmbeddingRepo) ListAll(ctx context.Context) ([]model.DocumentEmbedding, error) {
	where := map[string]interface{}{
		"_orderby": "ctime asc",
	}
	sqlStr, args, err := builder.BuildSelect("document_embeddings", where, []string{"document_id", "user_id", "embedding", "ctime"})
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.DocumentEmbedding
	for rows.Next() {
		var item model.DocumentEmbedding
		var blob []byte
		if err := rows.Scan(&item.DocumentID, &item.UserID, &blob, &item.Ctime); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(blob, &item.Embedding); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

func (r *EmbeddingRepo) DeleteTx(ctx context.Context, ex execer, userID, docID string) error {
	where := map[string]interface{}{
		"document_id": docID,
		"user_id":     userID,
	}
	sqlStr, args, err := builder.BuildDelete("document_embeddings", where)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, sqlStr, args...)
	return err
}
