package session

import "time"

// Session is one viewer of the gallery and the view preferences restored
// when they come back.
type Session struct {
	ID        string    `json:"id"`
	Admin     bool      `json:"admin"`
	Search    string    `json:"search"`
	Page      int       `json:"page"`
	PageSize  int       `json:"page_size"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
