package gharchive

import (
	"encoding/json"
	"fmt"
	"time"
)

// HourRef identifies a GH Archive hour (UTC).
type HourRef struct {
	Year  int
	Month int
	Day   int
	Hour  int
}

// NewHourRef creates an HourRef from a time.Time, converting to UTC
func NewHourRef(t time.Time) HourRef {
	ut := t.UTC()
	return HourRef{Year: ut.Year(), Month: int(ut.Month()), Day: ut.Day(), Hour: ut.Hour()}
}

// String returns the string representation of the HourRef in GH Archive format
func (h HourRef) String() string {
	// Matches GH Archive naming: YYYY-MM-DD-H.json.gz
	return fmtHour(h.Year, h.Month, h.Day, h.Hour)
}

// UTC returns the UTC time corresponding to the HourRef
func (h HourRef) UTC() time.Time {
	return time.Date(h.Year, time.Month(h.Month), h.Day, h.Hour, 0, 0, 0, time.UTC)
}

// fmtHour formats the hour in GH Archive format: YYYY-MM-DD-H
func fmtHour(y, m, d, h int) string {
	return fmt.Sprintf("%04d-%02d-%02d-%d", y, m, d, h)
}

// EventEnvelope is the outer event format GH Archive stores per line.
// We keep the identity and principal fields this importer persists;
// Payload stays raw for the projection stage
type EventEnvelope struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Actor     Actor           `json:"actor"`
	Repo      Repo            `json:"repo"`
	Payload   json.RawMessage `json:"payload"`
	Public    bool            `json:"public"`
	CreatedAt time.Time       `json:"created_at"`
}

// Actor is the user who triggered the event
type Actor struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	URL       string `json:"url"`
	AvatarURL string `json:"avatar_url"`
}

// Repo is the repository the event occurred in
type Repo struct {
	ID   int64  `json:"id"`
	Name string `json:"name"` // owner/name
	URL  string `json:"url"`
}
