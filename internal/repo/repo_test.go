package repo_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docask/docask/internal/model"
	appErr "github.com/docask/docask/internal/pkg/errors"
	"github.com/docask/docask/internal/repo"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := repo.Open(filepath.Join(t.TempDir(), "repo_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repo.ApplyMigrations(db))
	return db
}

func TestUserRepoCreateAndGet(t *testing.T) {
	db := openTestDB(t)
	users := repo.NewUserRepo(db)
	ctx := context.Background()

	user := &model.User{
		ID:           "user-1",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		Ctime:        time.Now().Unix(),
	}
	require.NoError(t, users.Create(ctx, user))

	fetched, err := users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, "user-1", fetched.ID)

	_, err = users.GetByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestUserRepoDuplicateEmailConflicts(t *testing.T) {
	db := openTestDB(t)
	users := repo.NewUserRepo(db)
	ctx := context.Background()

	first := &model.User{ID: "user-1", Email: "alice@example.com", PasswordHash: "hash", Ctime: 1}
	require.NoError(t, users.Create(ctx, first))

	second := &model.User{ID: "user-2", Email: "alice@example.com", PasswordHash: "hash", Ctime: 2}
	require.ErrorIs(t, users.Create(ctx, second), appErr.ErrConflict)
}

func TestDocumentRepoCRUDAndIsolation(t *testing.T) {
	db := openTestDB(t)
	docs := repo.NewDocumentRepo(db)
	ctx := context.Background()

	doc := &model.Document{
		ID:      "doc-1",
		UserID:  "user-1",
		Title:   "Syllabus",
		Content: "full text",
		Summary: "short summary",
		Ctime:   time.Now().Unix(),
	}
	require.NoError(t, docs.Create(ctx, doc))

	fetched, err := docs.GetByID(ctx, "user-1", "doc-1")
	require.NoError(t, err)
	require.Equal(t, "Syllabus", fetched.Title)
	require.Equal(t, "full text", fetched.Content)

	// another owner cannot see the document
	_, err = docs.GetByID(ctx, "user-2", "doc-1")
	require.ErrorIs(t, err, appErr.ErrNotFound)
	require.ErrorIs(t, docs.Delete(ctx, "user-2", "doc-1"), appErr.ErrNotFound)

	require.NoError(t, docs.Delete(ctx, "user-1", "doc-1"))
	_, err = docs.GetByID(ctx, "user-1", "doc-1")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestDocumentRepoGetByIDsAndList(t *testing.T) {
	db := openTestDB(t)
	docs := repo.NewDocumentRepo(db)
	ctx := context.Background()

	for i, id := range []string{"doc-a", "doc-b", "doc-c"} {
		require.NoError(t, docs.Create(ctx, &model.Document{
			ID:      id,
			UserID:  "user-1",
			Title:   "title " + id,
			Content: "content " + id,
			Summary: "summary " + id,
			Ctime:   int64(100 + i),
		}))
	}

	fetched, err := docs.GetByIDs(ctx, "user-1", []string{"doc-a", "doc-c", "doc-missing"})
	require.NoError(t, err)
	require.Len(t, fetched, 2)

	fetched, err = docs.GetByIDs(ctx, "user-1", nil)
	require.NoError(t, err)
	require.Empty(t, fetched)

	metas, err := docs.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, metas, 3)
	require.Equal(t, "doc-a", metas[0].ID)
	require.Equal(t, "doc-c", metas[2].ID)
}

func TestEmbeddingRepoRoundTripAndListAll(t *testing.T) {
	db := openTestDB(t)
	embeddings := repo.NewEmbeddingRepo(db)
	ctx := context.Background()

	require.NoError(t, embeddings.Create(ctx, &model.DocumentEmbedding{
		DocumentID: "doc-1",
		UserID:     "user-1",
		Embedding:  []float32{0.25, -0.5, 1},
		Ctime:      100,
	}))
	require.NoError(t, embeddings.Create(ctx, &model.DocumentEmbedding{
		DocumentID: "doc-2",
		UserID:     "user-2",
		Embedding:  []float32{1, 0, 0},
		Ctime:      200,
	}))

	all, err := embeddings.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "doc-1", all[0].DocumentID)
	require.Equal(t, []float32{0.25, -0.5, 1}, all[0].Embedding)
	require.Equal(t, "user-2", all[1].UserID)
}

func TestPairedInsertRollsBackTogether(t *testing.T) {
	db := openTestDB(t)
	docs := repo.NewDocumentRepo(db)
	embeddings := repo.NewEmbeddingRepo(db)
	ctx := context.Background()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, docs.CreateTx(ctx, tx, &model.Document{
		ID: "doc-1", UserID: "user-1", Title: "t", Content: "c", Summary: "s", Ctime: 1,
	}))
	require.NoError(t, embeddings.CreateTx(ctx, tx, &model.DocumentEmbedding{
		DocumentID: "doc-1", UserID: "user-1", Embedding: []float32{1}, Ctime: 1,
	}))
	require.NoError(t, tx.Rollback())

	_, err = docs.GetByID(ctx, "user-1", "doc-1")
	require.ErrorIs(t, err, appErr.ErrNotFound)
	all, err := embeddings.ListAll(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}
