package model

// FileRecord is an uploaded blob owned by a single principal.
type FileRecord struct {
	ID           string `json:"id"`
	OwnerID      string `json:"owner_id"`
	StoragePath  string `json:"-"`
	OriginalName string `json:"original_name"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mime_type"`
	CreatedAt    int64  `json:"created_at"`
}
