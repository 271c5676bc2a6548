// Package filetype classifies attachment payloads into coarse media
// categories from filename extensions and content-type hints.
package filetype

import (
	"fmt"
	"math"
	"strings"

	"github.com/DonatFortini/mailmate/internal/model"
)

var extensionCategories = map[string]model.Category{
	// Images
	"jpg":  model.CategoryImage,
	"jpeg": model.CategoryImage,
	"png":  model.CategoryImage,
	"gif":  model.CategoryImage,
	"webp": model.CategoryImage,
	"bmp":  model.CategoryImage,
	"svg":  model.CategoryImage,
	// PDF
	"pdf": model.CategoryPDF,
	// Text and documents
	"txt":  model.CategoryText,
	"csv":  model.CategoryText,
	"md":   model.CategoryText,
	"rtf":  model.CategoryText,
	"doc":  model.CategoryText,
	"docx": model.CategoryText,
	// Audio
	"mp3": model.CategoryAudio,
	"wav": model.CategoryAudio,
	"ogg": model.CategoryAudio,
	// Video
	"mp4":  model.CategoryVideo,
	"webm": model.CategoryVideo,
	"mov":  model.CategoryVideo,
}

var mimePrefixCategories = []struct {
	prefix   string
	category model.Category
}{
	{"image/", model.CategoryImage},
	{"application/pdf", model.CategoryPDF},
	{"text/", model.CategoryText},
	{"audio/", model.CategoryAudio},
	{"video/", model.CategoryVideo},
}

// Detect classifies a payload from its filename extension, falling back to
// the mime type hint. Extraction-time hints are weak, so the filename wins.
// Unknown inputs classify as other.
func Detect(filename, mimeType string) model.Category {
	if cat, ok := fromExtension(filename); ok {
		return cat
	}
	if cat, ok := fromMime(mimeType); ok {
		return cat
	}
	return model.CategoryOther
}

// DetectDeclared classifies from a declared content type first, falling back
// to the filename extension. A fetched response carries an authoritative
// content type, which outranks whatever the display name suggests.
func DetectDeclared(mimeType, filename string) model.Category {
	if cat, ok := fromMime(mimeType); ok {
		return cat
	}
	if cat, ok := fromExtension(filename); ok {
		return cat
	}
	return model.CategoryOther
}

func fromExtension(filename string) (model.Category, bool) {
	ext := strings.ToLower(Extension(filename))
	if ext == "" {
		return "", false
	}
	cat, ok := extensionCategories[ext]
	return cat, ok
}

func fromMime(mimeType string) (model.Category, bool) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if mimeType == "" {
		return "", false
	}
	// Strip parameters such as "; charset=utf-8".
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	for _, m := range mimePrefixCategories {
		if strings.HasPrefix(mimeType, m.prefix) {
			return m.category, true
		}
	}
	if strings.Contains(mimeType, "document") {
		return model.CategoryText, true
	}
	return "", false
}

// Extension returns the filename extension without the dot, or "" when the
// name has none.
func Extension(filename string) string {
	i := strings.LastIndexByte(filename, '.')
	if i < 0 || i == len(filename)-1 {
		return ""
	}
	return filename[i+1:]
}

// FormatSize renders a byte count as a short human-readable string.
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}

	units := []string{"B", "KB", "MB", "GB", "TB"}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(units) {
		i = len(units) - 1
	}

	value := float64(bytes) / math.Pow(1024, float64(i))
	return fmt.Sprintf("%s %s", strings.TrimSuffix(fmt.Sprintf("%.1f", value), ".0"), units[i])
}
