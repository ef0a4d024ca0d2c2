package location

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Status string

const (
	StatusActive Status = "active"
	StatusIdle   Status = "idle"
)

// Technician is a staff member's last reported position.
type Technician struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Phone    string    `json:"phone,omitempty"`
	Lat      float64   `json:"lat"`
	Lng      float64   `json:"lng"`
	LastSeen time.Time `json:"lastSeen"`
	Status   Status    `json:"status"`

	unparsedSeen string
}

// UnparsedLastSeen returns the reported timestamp when it could not be read; LastSeen stays zero.
func (t Technician) UnparsedLastSeen() string {
	return t.unparsedSeen
}

// Classify marks a technician active when the last report is at most staleAfter old.
func Classify(lastSeen, now time.Time, staleAfter time.Duration) Status {
	if lastSeen.IsZero() || now.Sub(lastSeen) > staleAfter {
		return StatusIdle
	}
	return StatusActive
}

// UnmarshalJSON reads the remote location feed, which names the same things several ways.
func (t *Technician) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Technician{
		ID:    firstString(raw, "staff_id", "id", "user_id"),
		Phone: firstString(raw, "phone", "phone_number"),
	}
	t.Name = firstString(raw, "name", "full_name")
	if t.Name == "" {
		t.Name = strings.TrimSpace(firstString(raw, "first_name") + " " + firstString(raw, "surname", "last_name"))
	}
	lat, err := firstFloat(raw, "latitude", "lat")
	if err != nil {
		return err
	}
	lng, err := firstFloat(raw, "longitude", "lng", "lon")
	if err != nil {
		return err
	}
	t.Lat, t.Lng = lat, lng
	if seen := firstString(raw, "last_seen", "updated_at", "timestamp", "recorded_at"); seen != "" {
		if parsed, err := parseTime(seen); err == nil {
			t.LastSeen = parsed
		} else {
			t.unparsedSeen = seen
		}
	}
	return nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func firstString(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func firstFloat(raw map[string]any, keys ...string) (float64, error) {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case float64:
			return v, nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return 0, fmt.Errorf("%s: %w", key, err)
			}
			return f, nil
		}
	}
	return 0, nil
}
