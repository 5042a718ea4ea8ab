package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-escrow/internal/interface/http/dto"
	"github.com/ignatzorin/freelance-escrow/internal/interface/http/response"
	"github.com/ignatzorin/freelance-escrow/internal/storage"
)

type UploadHandler struct {
	files *storage.FileStorage
}

func NewUploadHandler(files *storage.FileStorage) *UploadHandler {
	return &UploadHandler{files: files}
}

// Upload accepts a multipart "file" plus a "purpose" field and returns the stored reference.
func (h *UploadHandler) Upload(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	purpose, err := storage.ParsePurpose(c.PostForm("purpose"))
	if err != nil {
		response.Error(c, err)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	src, err := header.Open()
	if err != nil {
		response.BadRequest(c, "file cannot be read")
		return
	}
	defer src.Close()

	stored, err := h.files.Save(c.Request.Context(), userID, purpose, header.Filename, src)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToUploadResponse(stored))
}
