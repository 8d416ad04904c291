package posts

import (
	"time"

	"github.com/google/uuid"
)

// Post is a captioned image: a row in the posts table plus a stored blob
type Post struct {
	ID        uuid.UUID `json:"id"`
	Caption   string    `json:"caption"`
	ImageURL  string    `json:"image_url"`
	ImageKey  string    `json:"image_key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Payload is the writable part of a post, used for insert and update
type Payload struct {
	Caption  string `json:"caption"`
	ImageURL string `json:"image_url"`
	ImageKey string `json:"image_key,omitempty"`
}

// PageResult is one offset window of the filtered, newest-first listing
type PageResult struct {
	Posts      []Post `json:"posts"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	TotalCount int64  `json:"total_count"`
	TotalPages int    `json:"total_pages"`
}

// Change operations carried by ChangeEvent
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// ChangeEvent is one notification from the posts change feed
type ChangeEvent struct {
	Op string    `json:"op"`
	ID uuid.UUID `json:"id"`
}

// ListResponse wraps the unpaged sequence for the JSON API
type ListResponse struct {
	Success bool   `json:"success"`
	Data    []Post `json:"data"`
}

// PageResponse wraps a page for the JSON API
type PageResponse struct {
	Success bool        `json:"success"`
	Data    *PageResult `json:"data"`
}

// PostResponse is a standard response wrapper
type PostResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    *Post  `json:"data,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
