package dto

import "time"

// AttachmentResponse describes a stored upload. FileURL is the key a submission references.
type AttachmentResponse struct {
	FileURL     string    `json:"fileUrl"`
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
	MimeType    string    `json:"mimeType"`
	SizeBytes   int64     `json:"sizeBytes"`
}
