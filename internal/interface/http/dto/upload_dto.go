package dto

import "github.com/ignatzorin/freelance-escrow/internal/storage"

type UploadResponse struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

func ToUploadResponse(f *storage.StoredFile) UploadResponse {
	return UploadResponse{Name: f.Name, URL: f.URL, ContentType: f.ContentType, Size: f.Size}
}
