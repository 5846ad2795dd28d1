package handler

import (
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"lan_messenger/internal/repository"
	"lan_messenger/internal/service"
	"lan_messenger/pkg/logger"
)

type MediaHandler struct {
	media    service.MediaService
	messages repository.MessageRepository
	log      logger.Logger
}

func NewMediaHandler(media service.MediaService, messages repository.MessageRepository, log logger.Logger) *MediaHandler {
	return &MediaHandler{media: media, messages: messages, log: log}
}

// Gallery lists media messages with their serving URLs, newest first by
// default. Rows whose file vanished from disk are dropped.
func (h *MediaHandler) Gallery(c *gin.Context) {
	mediaType := c.DefaultQuery("media_type", "all")
	newestFirst := c.DefaultQuery("sort", "newest") == "newest"

	messages, err := h.messages.MediaMessages(c.Request.Context(), mediaType, newestFirst)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load media"})
		return
	}

	items := make([]gin.H, 0, len(messages))
	for _, msg := range messages {
		key := h.media.NormalizeKey(msg.Content, msg.Type)
		if !h.media.Exists(key) {
			continue
		}

		originalName := msg.OriginalName
		if originalName == "" {
			originalName = path.Base(key)
		}

		item := gin.H{
			"id":            msg.ID,
			"user":          msg.Username,
			"filename":      key,
			"type":          msg.Type,
			"timestamp":     msg.Timestamp,
			"size":          msg.FileSize,
			"original_name": originalName,
			"has_thumb":     false,
			"media_url":     "/media/" + key,
			"thumb_url":     nil,
		}
		if h.media.ThumbExists(key) {
			item["has_thumb"] = true
			item["thumb_url"] = "/thumbs/" + key
		}
		items = append(items, item)
	}

	c.JSON(http.StatusOK, gin.H{"media": items, "total": len(items)})
}

// CleanupOrphans removes media and thumbnail files no message row points
// to any more.
func (h *MediaHandler) CleanupOrphans(c *gin.Context) {
	refs, err := h.messages.MediaRefs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load media refs"})
		return
	}

	referenced := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		referenced[h.media.NormalizeKey(ref.Key, ref.Type)] = struct{}{}
	}

	var cleanedMedia, cleanedThumbs int
	for _, rel := range h.media.ListMedia() {
		if _, ok := referenced[rel]; ok {
			continue
		}
		if err := h.media.RemoveMediaFile(rel); err == nil {
			cleanedMedia++
		} else {
			h.log.Error("Could not remove orphan media file", "file", rel, "error", err)
		}
	}
	for _, rel := range h.media.ListThumbs() {
		if _, ok := referenced[rel]; ok {
			continue
		}
		if err := h.media.RemoveThumbFile(rel); err == nil {
			cleanedThumbs++
		} else {
			h.log.Error("Could not remove orphan thumbnail", "file", rel, "error", err)
		}
	}

	if cleanedMedia > 0 || cleanedThumbs > 0 {
		h.log.Info("Orphan cleanup finished", "media", cleanedMedia, "thumbs", cleanedThumbs)
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "success",
		"cleaned_media":  cleanedMedia,
		"cleaned_thumbs": cleanedThumbs,
	})
}

// StorageStats reports disk usage next to the database view of media, so
// drift shows up as orphan_files.
func (h *MediaHandler) StorageStats(c *gin.Context) {
	usage := h.media.Usage()

	dbCount, err := h.messages.CountMedia(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count media messages"})
		return
	}

	orphans := int64(usage.MediaCount) - dbCount
	if orphans < 0 {
		orphans = 0
	}

	c.JSON(http.StatusOK, gin.H{
		"media_size_bytes": usage.MediaBytes,
		"thumb_size_bytes": usage.ThumbBytes,
		"media_count":      usage.MediaCount,
		"thumb_count":      usage.ThumbCount,
		"db_media_count":   dbCount,
		"orphan_files":     orphans,
	})
}

// NoDotfiles guards the static file groups against hidden-file probing.
func NoDotfiles() gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, part := range strings.Split(c.Request.URL.Path, "/") {
			if strings.HasPrefix(part, ".") {
				c.AbortWithStatus(http.StatusNotFound)
				return
			}
		}
		c.Next()
	}
}
