package service

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"lan_messenger/internal/domain"
	apperrors "lan_messenger/pkg/errors"
	"lan_messenger/pkg/logger"
)

// Media keys on the wire are always <bucket>/<filename>.
var mediaBuckets = map[string]string{
	domain.MessageTypeImage: "images",
	domain.MessageTypeVideo: "videos",
	domain.MessageTypeFile:  "files",
	domain.MessageTypeVoice: "voice",
}

var allowedExtensions = map[string]struct{}{
	// images
	"jpg": {}, "jpeg": {}, "png": {}, "webp": {}, "gif": {}, "bmp": {}, "svg": {},
	// video
	"mp4": {}, "webm": {}, "mov": {}, "avi": {}, "mkv": {},
	// audio
	"ogg": {}, "mp3": {}, "wav": {}, "m4a": {},
	// documents
	"pdf": {}, "doc": {}, "docx": {}, "xls": {}, "xlsx": {}, "ppt": {}, "pptx": {}, "txt": {}, "csv": {},
	// archives
	"zip": {}, "rar": {}, "7z": {}, "tar": {}, "gz": {},
}

var thumbnailExtensions = map[string]struct{}{
	"jpg": {}, "jpeg": {}, "png": {}, "webp": {}, "gif": {},
}

const (
	thumbnailMaxDim  = 300
	thumbnailQuality = 85
)

type UploadResult struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	Ext          string `json:"ext"`
	Size         int64  `json:"size"`
	HasThumb     bool   `json:"has_thumb"`
}

type StorageUsage struct {
	MediaBytes int64 `json:"media_size_bytes"`
	ThumbBytes int64 `json:"thumb_size_bytes"`
	MediaCount int   `json:"media_count"`
	ThumbCount int   `json:"thumb_count"`
}

// MediaService owns the on-disk media store: content addressing of
// uploads, thumbnails for images, and removal when a message is deleted.
type MediaService interface {
	NormalizeKey(stored, msgType string) string
	Save(originalName, contentType string, r io.Reader) (*UploadResult, error)
	Remove(key, msgType string)
	Exists(key string) bool
	ThumbExists(key string) bool
	MediaRoot() string
	ThumbRoot() string
	ListMedia() []string
	ListThumbs() []string
	RemoveMediaFile(rel string) error
	RemoveThumbFile(rel string) error
	Usage() StorageUsage
}

type mediaService struct {
	mediaRoot string
	thumbRoot string
	maxSize   int64
	log       logger.Logger
}

func NewMediaService(dataDir string, maxUploadSize int64, log logger.Logger) (MediaService, error) {
	s := &mediaService{
		mediaRoot: filepath.Join(dataDir, "media"),
		thumbRoot: filepath.Join(dataDir, "thumbnails"),
		maxSize:   maxUploadSize,
		log:       log,
	}

	for _, bucket := range mediaBuckets {
		if err := os.MkdirAll(filepath.Join(s.mediaRoot, bucket), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create media dir: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Join(s.thumbRoot, mediaBuckets[domain.MessageTypeImage]), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create thumbnail dir: %w", err)
	}

	return s, nil
}

// NormalizeKey upgrades a legacy single-component key to the
// <bucket>/<filename> form; a key that already has a bucket is returned
// unchanged.
func (s *mediaService) NormalizeKey(stored, msgType string) string {
	if strings.Contains(stored, "/") {
		return stored
	}

	bucket, ok := mediaBuckets[msgType]
	if !ok {
		bucket = mediaBuckets[domain.MessageTypeFile]
	}
	return bucket + "/" + stored
}

func (s *mediaService) mediaPath(key string) string {
	return filepath.Join(s.mediaRoot, filepath.FromSlash(key))
}

func (s *mediaService) thumbPath(key string) string {
	return filepath.Join(s.thumbRoot, filepath.FromSlash(key))
}

func extensionOf(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return strings.ToLower(name[idx+1:])
	}
	return ""
}

func detectMessageType(contentType, ext string) string {
	switch {
	case strings.HasPrefix(contentType, "audio/"):
		return domain.MessageTypeVoice
	case strings.HasPrefix(contentType, "image/"):
		return domain.MessageTypeImage
	case strings.HasPrefix(contentType, "video/"):
		return domain.MessageTypeVideo
	}

	switch ext {
	case "jpg", "jpeg", "png", "webp", "gif":
		return domain.MessageTypeImage
	case "mp4", "webm", "mov":
		return domain.MessageTypeVideo
	case "ogg", "mp3", "wav", "m4a":
		return domain.MessageTypeVoice
	}
	return domain.MessageTypeFile
}

func (s *mediaService) Save(originalName, contentType string, r io.Reader) (*UploadResult, error) {
	ext := extensionOf(originalName)
	if _, ok := allowedExtensions[ext]; !ok {
		s.log.Warn("Rejected upload", "filename", originalName, "ext", ext)
		return nil, apperrors.ErrFileTypeNotAllowed
	}

	msgType := detectMessageType(contentType, ext)
	key := s.NormalizeKey(uuid.NewString()+"."+ext, msgType)
	path := s.mediaPath(key)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create media file: %w", err)
	}

	written, err := io.Copy(f, io.LimitReader(r, s.maxSize+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write media file: %w", err)
	}
	if written > s.maxSize {
		os.Remove(path)
		return nil, apperrors.ErrFileTooLarge
	}

	hasThumb := false
	if _, ok := thumbnailExtensions[ext]; ok {
		hasThumb = s.generateThumbnail(path, key)
	}

	s.log.Info("File uploaded", "filename", originalName, "key", key, "size", written, "type", msgType)

	return &UploadResult{
		Filename:     key,
		OriginalName: originalName,
		Ext:          ext,
		Size:         written,
		HasThumb:     hasThumb,
	}, nil
}

func (s *mediaService) generateThumbnail(srcPath, key string) bool {
	f, err := os.Open(srcPath)
	if err != nil {
		return false
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		s.log.Debug("Thumbnail skipped, undecodable image", "key", key, "error", err)
		return false
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > thumbnailMaxDim || h > thumbnailMaxDim {
		if w > h {
			h = h * thumbnailMaxDim / w
			w = thumbnailMaxDim
		} else {
			w = w * thumbnailMaxDim / h
			h = thumbnailMaxDim
		}
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	thumbPath := s.thumbPath(key)
	if err := os.MkdirAll(filepath.Dir(thumbPath), 0o755); err != nil {
		return false
	}
	out, err := os.Create(thumbPath)
	if err != nil {
		return false
	}
	defer out.Close()

	if err := jpeg.Encode(out, dst, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		os.Remove(thumbPath)
		return false
	}

	s.log.Info("Thumbnail created", "key", key)
	return true
}

// Remove deletes the stored file and its thumbnail. Missing files are
// fine; the message row is already gone.
func (s *mediaService) Remove(key, msgType string) {
	key = s.NormalizeKey(key, msgType)

	if err := os.Remove(s.mediaPath(key)); err == nil {
		s.log.Info("File deleted", "key", key)
	} else if !os.IsNotExist(err) {
		s.log.Error("Could not delete media file", "key", key, "error", err)
	}

	if err := os.Remove(s.thumbPath(key)); err != nil && !os.IsNotExist(err) {
		s.log.Error("Could not delete thumbnail", "key", key, "error", err)
	}
}

func (s *mediaService) Exists(key string) bool {
	_, err := os.Stat(s.mediaPath(key))
	return err == nil
}

func (s *mediaService) ThumbExists(key string) bool {
	_, err := os.Stat(s.thumbPath(key))
	return err == nil
}

func (s *mediaService) MediaRoot() string { return s.mediaRoot }
func (s *mediaService) ThumbRoot() string { return s.thumbRoot }

func listFilesRecursive(root string) []string {
	var paths []string
	filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || strings.HasPrefix(info.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	return paths
}

func (s *mediaService) ListMedia() []string  { return listFilesRecursive(s.mediaRoot) }
func (s *mediaService) ListThumbs() []string { return listFilesRecursive(s.thumbRoot) }

func (s *mediaService) RemoveMediaFile(rel string) error {
	return os.Remove(s.mediaPath(rel))
}

func (s *mediaService) RemoveThumbFile(rel string) error {
	return os.Remove(s.thumbPath(rel))
}

func (s *mediaService) Usage() StorageUsage {
	var usage StorageUsage
	for _, rel := range s.ListMedia() {
		usage.MediaCount++
		if info, err := os.Stat(s.mediaPath(rel)); err == nil {
			usage.MediaBytes += info.Size()
		}
	}
	for _, rel := range s.ListThumbs() {
		usage.ThumbCount++
		if info, err := os.Stat(s.thumbPath(rel)); err == nil {
			usage.ThumbBytes += info.Size()
		}
	}
	return usage
}
