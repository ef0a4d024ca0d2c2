package jobform

import (
	"encoding/json"
	"strings"
)

type Note struct {
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// Display renders the note as "[timestamp] text".
func (n Note) Display() string {
	if n.Timestamp == "" {
		return n.Text
	}
	return "[" + n.Timestamp + "] " + n.Text
}

// ParseNotes accepts the notes value as stored by the API: a JSON string holding an
// array, an already decoded array, or a bare string.
func ParseNotes(v any) []Note {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		var decoded []any
		if strings.HasPrefix(s, "[") && json.Unmarshal([]byte(s), &decoded) == nil {
			return notesFromSlice(decoded)
		}
		return []Note{{Text: s}}
	case []any:
		return notesFromSlice(t)
	case []Note:
		return append([]Note(nil), t...)
	default:
		return nil
	}
}

func notesFromSlice(items []any) []Note {
	notes := make([]Note, 0, len(items))
	for _, item := range items {
		switch n := item.(type) {
		case string:
			if strings.TrimSpace(n) != "" {
				notes = append(notes, Note{Text: n})
			}
		case map[string]any:
			note := Note{Text: toString(n["text"]), Timestamp: toString(n["timestamp"])}
			if note.Timestamp == "" {
				note.Timestamp = toString(n["created_at"])
			}
			if strings.TrimSpace(note.Text) != "" {
				notes = append(notes, note)
			}
		}
	}
	return notes
}

// FormatNotes joins the display form of every note with newlines.
func FormatNotes(notes []Note) string {
	lines := make([]string, 0, len(notes))
	for _, n := range notes {
		lines = append(lines, n.Display())
	}
	return strings.Join(lines, "\n")
}
