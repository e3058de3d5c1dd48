package model

// DocumentEmbedding pairs a document with the vector of its summary.
// Every document has exactly one embedding row under the same id; the
// pair is written in a single transaction.
type DocumentEmbedding struct {
	DocumentID string    `json:"document_id"`
	UserID     string    `json:"user_id"`
	Embedding  []float32 `json:"embedding"`
	Ctime      int64     `json:"ctime"`
}
