package document

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Document is one file attached to a job on the remote store.
type Document struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Category   string `json:"category,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
	Size       int64  `json:"size,omitempty"`
	UploadedAt string `json:"uploadedAt,omitempty"`
}

// UnmarshalJSON accepts the remote's snake_case and camelCase spellings.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = Document{
		ID:         str(raw["id"]),
		Name:       first(raw, "file_name", "fileName", "name"),
		Category:   first(raw, "category"),
		MimeType:   first(raw, "mime_type", "mimeType", "content_type"),
		UploadedAt: first(raw, "created_at", "createdAt", "uploaded_at"),
	}
	if size, err := strconv.ParseInt(first(raw, "size", "file_size"), 10, 64); err == nil {
		d.Size = size
	}
	return nil
}

func first(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(str(raw[key])); v != "" {
			return v
		}
	}
	return ""
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// Key identifies an expandable job node across job types.
func Key(jobType, jobID string) string {
	return jobType + ":" + jobID
}
