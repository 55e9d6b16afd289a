package sanitizer

import (
	"strings"

	"intake/pkg/model"
)

// NormalizeAttachment trims the metadata and lowercases the media type,
// dropping any parameters ("image/PNG; q=1" becomes "image/png").
func NormalizeAttachment(a model.Attachment) model.Attachment {
	a.Name = TrimAndNormalize(a.Name)
	mediaType, _, _ := strings.Cut(a.ContentType, ";")
	a.ContentType = strings.ToLower(strings.TrimSpace(mediaType))
	a.URL = strings.TrimSpace(a.URL)
	return a
}

// NormalizeAttachments normalizes every entry and keeps the first
// attachment for each name. A nil slice stays nil.
func NormalizeAttachments(items []model.Attachment) []model.Attachment {
	if items == nil {
		return nil
	}

	seen := make(map[string]bool, len(items))
	result := make([]model.Attachment, 0, len(items))
	for _, item := range items {
		item = NormalizeAttachment(item)
		if item.Name != "" {
			if seen[item.Name] {
				continue
			}
			seen[item.Name] = true
		}
		result = append(result, item)
	}
	return result
}
