package model

// Document holds the full text of an ingested document. The summary is
// generated at ingest time and only ever embedded for retrieval; answers
// are always produced from Content.
type Document struct {
	ID      string `json:"id"`
	UserID  string `json:"user_id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Summary string `json:"summary"`
	Ctime   int64  `json:"ctime"`
}

// DocumentMeta is the listing view of a document, without the full text.
type DocumentMeta struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Ctime   int64  `json:"ctime"`
}
