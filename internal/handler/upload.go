package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lan_messenger/internal/service"
	apperrors "lan_messenger/pkg/errors"
	"lan_messenger/pkg/logger"
)

type UploadHandler struct {
	media   service.MediaService
	maxSize int64
	log     logger.Logger
}

func NewUploadHandler(media service.MediaService, maxSize int64, log logger.Logger) *UploadHandler {
	return &UploadHandler{media: media, maxSize: maxSize, log: log}
}

// Upload accepts a multipart batch under the "files" field. Files with a
// disallowed extension are skipped, an oversized file fails the whole
// request with 413.
func (h *UploadHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxSize+10*1024*1024)

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
		return
	}

	results := make([]*service.UploadResult, 0, len(files))
	for _, header := range files {
		f, err := header.Open()
		if err != nil {
			h.log.Error("Failed to open uploaded file", "filename", header.Filename, "error", err)
			continue
		}

		result, err := h.media.Save(header.Filename, header.Header.Get("Content-Type"), f)
		f.Close()
		if err != nil {
			if errors.Is(err, apperrors.ErrFileTooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
				return
			}
			if errors.Is(err, apperrors.ErrFileTypeNotAllowed) {
				continue
			}
			h.log.Error("Failed to store uploaded file", "filename", header.Filename, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store file"})
			return
		}
		results = append(results, result)
	}

	c.JSON(http.StatusOK, gin.H{"files": results})
}
