package domain

import "time"

// LibraryEntry describes one playable file in the media directory.
// Name is the on-disk file name and doubles as the streaming id;
// DisplayName is the cleaned-up title derived from it.
type LibraryEntry struct {
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName"`
	Year        string    `json:"year,omitempty"`
	SizeBytes   int64     `json:"sizeBytes"`
	ContentType string    `json:"contentType"`
	ModifiedAt  time.Time `json:"modifiedAt"`
}
