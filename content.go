package contentsync

import (
	"context"
	"time"
)

// Status is the publication state of a content item.
type Status string

// Status values shared by WordPress and the local store.
const (
	StatusDraft   Status = "draft"
	StatusPending Status = "pending"
	StatusPrivate Status = "private"
	StatusPublish Status = "publish"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusPrivate, StatusPublish:
		return true
	}
	return false
}

// Meta keys written on content managed by contentsync.
const (
	MetaSourceID      = "_contentsync_source_id"
	MetaSourceHash    = "_contentsync_source_hash"
	MetaSchemaVersion = "_contentsync_schema_version"
)

// Content represents a post, page or product held by a content store.
type Content struct {
	ID    int    `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`

	// Body is the HTML or plain-text body.
	Body string `json:"body"`

	// Data is the raw page-builder document, empty for plain bodies.
	Data string `json:"data,omitempty"`

	Status           Status            `json:"status"`
	Language         string            `json:"language,omitempty"`
	TranslationGroup string            `json:"translationGroup,omitempty"`
	Meta             map[string]string `json:"meta,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// HasDocument reports whether the content carries a structured document.
func (c *Content) HasDocument() bool {
	return c.Data != ""
}

// Validate returns an error if the content contains invalid fields.
func (c *Content) Validate() error {
	if c.Type == "" {
		return Errorf(EINVALID, "content type required")
	}
	if !c.Status.Valid() {
		return Errorf(EINVALID, "invalid content status %q", c.Status)
	}
	return nil
}

// ContentStore is the external store that content is cloned from and written to.
type ContentStore interface {
	// CloneContents duplicates each source item in one call. Every cloned
	// item shares its source's translation group. Individual failures are
	// reported in the result rather than as an error.
	CloneContents(ctx context.Context, ids []int) (*CloneContentsResult, error)

	// FindContentByID retrieves the full content item.
	// Returns ENOTFOUND if the content does not exist.
	FindContentByID(ctx context.Context, id int) (*Content, error)

	// FindContents retrieves content matching the filter.
	FindContents(ctx context.Context, filter ContentFilter) ([]*Content, error)

	// UpdateContent applies upd to an existing item.
	// Returns ENOTFOUND if the content does not exist.
	UpdateContent(ctx context.Context, id int, upd ContentUpdate) error
}

// ContentFilter represents a filter for FindContents.
type ContentFilter struct {
	ID               *int    `json:"id"`
	Type             *string `json:"type"`
	Language         *string `json:"language"`
	TranslationGroup *string `json:"translationGroup"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// ContentUpdate represents fields that can be updated on content.
// Meta entries are merged into the existing meta.
type ContentUpdate struct {
	Title    *string           `json:"title"`
	Body     *string           `json:"body"`
	Data     *string           `json:"data"`
	Status   *Status           `json:"status"`
	Language *string           `json:"language"`
	Meta     map[string]string `json:"meta"`
}

// CloneContentsResult is the store's own outcome of a bulk clone.
type CloneContentsResult struct {
	Cloned []ClonePair    `json:"success"`
	Failed []CloneFailure `json:"failed"`
}
