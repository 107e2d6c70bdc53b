package upload

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// sessionNamespace derives stable session UUIDs from export IDs, so re-running
// the sync over the same export files is idempotent on the server side.
var sessionNamespace = uuid.MustParse("7c9e4a2b-31d8-4f6e-9a0c-5b8d2e1f6a43")

// exportFile is one watch-export JSON file: a batch of recorded cardio
// sessions.
type exportFile struct {
	Source   string          `json:"source"`
	Sessions []exportSession `json:"sessions"`
}

type exportSession struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	AvgHeartRate   *float64  `json:"avg_heart_rate,omitempty"`
	MaxHeartRate   *float64  `json:"max_heart_rate,omitempty"`
	ActiveCalories *float64  `json:"active_calories,omitempty"`
}

// convertSession maps an exported session to the server's ingest payload.
// Sessions with an export ID get a deterministic UUID derived from it.
func convertSession(s exportSession, source string) (cardioPayload, error) {
	if s.Start.IsZero() || s.End.IsZero() || !s.End.After(s.Start) {
		return cardioPayload{}, fmt.Errorf("session %q: invalid interval %v..%v", s.ID, s.Start, s.End)
	}

	p := cardioPayload{
		StartTime:      s.Start,
		EndTime:        s.End,
		AvgHeartRate:   s.AvgHeartRate,
		MaxHeartRate:   s.MaxHeartRate,
		ActiveCalories: s.ActiveCalories,
		Source:         source,
	}
	if s.Type != "" {
		p.Source = source + "/" + s.Type
	}
	if s.ID != "" {
		id := uuid.NewSHA1(sessionNamespace, []byte(s.ID))
		p.ID = &id
	}
	return p, nil
}
