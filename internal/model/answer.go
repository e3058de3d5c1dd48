package model

// CachedAnswer is a previously generated answer keyed by the fingerprint
// of (owner, normalized question).
type CachedAnswer struct {
	Fingerprint string   `json:"fingerprint"`
	UserID      string   `json:"user_id"`
	Question    string   `json:"question"`
	Answer      string   `json:"answer"`
	DocIDs      []string `json:"doc_ids"`
	Ctime       int64    `json:"ctime"`
}
