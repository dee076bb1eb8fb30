package domain

import (
	"crypto/sha256"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Page is the bookkeeping record of one indexed documentation page.
// ContentHash is the sha256 of the extracted text; incremental reindexing
// skips pages whose hash is unchanged.
type Page struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	PageType    string    `json:"page_type"`
	ContentHash string    `json:"content_hash"`
	ChunkCount  int       `json:"chunk_count"`
	IndexedAt   time.Time `json:"indexed_at"`
}

// CrawledPage is the raw output of the crawler for one URL.
type CrawledPage struct {
	URL      string
	Title    string
	Text     string
	Outlinks []string
}

// Chunk is one indexable unit of a page with its vector store payload.
type Chunk struct {
	Text    string
	Payload PassagePayload
}

// PointID derives a stable UUID from the chunk text, so re-ingesting
// identical text overwrites the existing vector point instead of
// duplicating it.
func (c Chunk) PointID() string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(c.Text)))
	id, err := uuid.FromBytes(sum[:16])
	if err != nil {
		return uuid.NewSHA1(uuid.NameSpaceOID, sum[:]).String()
	}
	return id.String()
}

// RelatedPage is a neighbouring page from the link graph.
type RelatedPage struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type ReindexJobStatus string

const (
	JobQueued  ReindexJobStatus = "queued"
	JobRunning ReindexJobStatus = "running"
	JobDone    ReindexJobStatus = "done"
	JobFailed  ReindexJobStatus = "failed"
)

// ReindexJob tracks one crawl-and-index run end to end.
type ReindexJob struct {
	ID        string           `json:"id"`
	Status    ReindexJobStatus `json:"status"`
	ForceFull bool             `json:"force_full"`
	Pages     int              `json:"pages"`
	Chunks    int              `json:"chunks"`
	Skipped   int              `json:"skipped"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}
