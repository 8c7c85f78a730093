package media

import (
	"path/filepath"
	"strings"
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".bmp": true,
	".gif": true, ".tiff": true, ".webp": true,
}

var videoExtensions = map[string]bool{
	".mp4": true, ".avi": true, ".mov": true, ".mkv": true,
	".wmv": true, ".flv": true, ".webm": true, ".m4v": true,
}

// IsImageFile reports whether the upload looks like an image, by MIME
// type or by file extension.
func IsImageFile(contentType, filename string) bool {
	if strings.HasPrefix(contentType, "image/") {
		return true
	}
	return imageExtensions[strings.ToLower(filepath.Ext(filename))]
}

// IsVideoFile reports whether the upload looks like a video, by MIME
// type or by file extension.
func IsVideoFile(contentType, filename string) bool {
	if strings.HasPrefix(contentType, "video/") {
		return true
	}
	return videoExtensions[strings.ToLower(filepath.Ext(filename))]
}
