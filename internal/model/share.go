package model

// ShareLink grants access to a FileRecord through an opaque token.
// Timestamps are unix milliseconds.
type ShareLink struct {
	ID            string  `json:"id"`
	FileID        string  `json:"file_id"`
	Token         string  `json:"token"`
	HasPassword   bool    `json:"has_password"`
	PasswordHash  *string `json:"-"`
	ExpiresAt     *int64  `json:"expires_at,omitempty"`
	CreatedAt     int64   `json:"created_at"`
	AccessedCount int64   `json:"accessed_count"`
}

// ExpiredAt reports whether the link is no longer usable at now (unix ms).
func (l *ShareLink) ExpiredAt(now int64) bool {
	return l.ExpiresAt != nil && *l.ExpiresAt <= now
}
