package types

import "time"

// Post is a persisted feed announcement.
type Post struct {
	// ID is assigned by the store on save.
	ID string `json:"id" bson:"-"`

	// Title is the heading detected in the first lines, or the default title.
	Title string `json:"title" bson:"title"`

	// Content is the formatted, markup-annotated document.
	Content string `json:"content" bson:"content"`

	// RawContent is the meaningful lines of the block joined by newlines.
	RawContent string `json:"raw_content" bson:"raw_content"`

	// Author may be empty.
	Author string `json:"author" bson:"author"`

	// PostedTime is the relative time line as rendered ("2 days ago"). May be empty.
	PostedTime string `json:"posted_time" bson:"posted_time"`

	// ContentHash is the canonical hash of Content and the sole dedup key.
	ContentHash string `json:"content_hash" bson:"content_hash"`

	// CreatedAt is set by the store on save.
	CreatedAt time.Time `json:"created_at" bson:"created_at"`

	// Sent is owned by the store and the notifier; ingestion never sets it.
	Sent bool `json:"sent" bson:"sent"`
}

// Clone creates a copy of the post.
func (p *Post) Clone() *Post {
	clone := *p
	return &clone
}

// CandidateBlock is one raw extracted unit of text, prior to parsing.
type CandidateBlock struct {
	// Index is the ordinal position in the current extraction pass.
	Index int

	// Text is the rendered text of the block.
	Text string
}

// StoreStats summarizes the contents of a post store.
type StoreStats struct {
	TotalPosts    int64 `json:"total_posts"`
	PendingToSend int64 `json:"pending_to_send"`
}
