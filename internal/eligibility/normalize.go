package eligibility

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/velafit/coachrewards-backend/pkg/enums"
)

// OverrideEntry is one admin override applied to an eligibility decision.
// The history is append-only; entries are stored oldest first.
type OverrideEntry struct {
	Status    enums.OverrideStatus `json:"status"`
	Note      string               `json:"note,omitempty"`
	UserID    uuid.UUID            `json:"user_id"`
	Timestamp time.Time            `json:"timestamp"`
}

// ParseOverrides normalizes the stored override history into typed entries.
// Older rows stored the history in looser shapes (a bare status string or a
// single object instead of an array); normalization happens here, once, so
// call sites never re-interpret the raw JSON.
func ParseOverrides(raw json.RawMessage) ([]OverrideEntry, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var entries []OverrideEntry
	if err := json.Unmarshal(raw, &entries); err == nil {
		return entries, nil
	}

	var single OverrideEntry
	if err := json.Unmarshal(raw, &single); err == nil {
		return []OverrideEntry{single}, nil
	}

	var legacy string
	if err := json.Unmarshal(raw, &legacy); err == nil {
		status, err := enums.ParseOverrideStatus(legacy)
		if err != nil {
			return nil, fmt.Errorf("unrecognized legacy override value %q", legacy)
		}
		return []OverrideEntry{{Status: status}}, nil
	}

	return nil, fmt.Errorf("unrecognized override history shape")
}

// MarshalOverrides serializes the history back into its canonical array shape.
func MarshalOverrides(entries []OverrideEntry) (json.RawMessage, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("marshal override history: %w", err)
	}
	return raw, nil
}

// AppendOverride normalizes the existing history and appends one entry,
// returning the updated canonical JSON.
func AppendOverride(raw json.RawMessage, entry OverrideEntry) (json.RawMessage, error) {
	entries, err := ParseOverrides(raw)
	if err != nil {
		return nil, err
	}
	return MarshalOverrides(append(entries, entry))
}
