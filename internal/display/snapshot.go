// Package display holds the value objects rendered on tiles and the small
// text helpers that fit them into narrow fields.
package display

import (
	"encoding/json"
	"time"
)

// Glucose is the latest sensor reading as the paired device formatted it.
type Glucose struct {
	Value     string    `json:"value"`
	Mgdl      float64   `json:"mgdl,omitempty"`
	Delta     string    `json:"delta,omitempty"`
	AvgDelta  string    `json:"avg_delta,omitempty"`
	Level     int       `json:"level"` // -1 low, 0 in range, 1 high
	Timestamp time.Time `json:"timestamp"`
}

// Status is the loop status line.
type Status struct {
	IOBSum        string `json:"iob_sum,omitempty"`
	IOBDetail     string `json:"iob_detail,omitempty"`
	COB           string `json:"cob,omitempty"`
	CurrentBasal  string `json:"current_basal,omitempty"`
	Battery       string `json:"battery,omitempty"`
	RigBattery    string `json:"rig_battery,omitempty"`
	OpenAPSStatus string `json:"openaps_status,omitempty"`
}

// Snapshot is an immutable view of the last data received.
type Snapshot struct {
	Glucose   Glucose   `json:"glucose"`
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReadingAt is the timestamp of the reading itself; zero when none exists.
func (s Snapshot) ReadingAt() time.Time { return s.Glucose.Timestamp }

// Encode returns the persisted JSON form.
func (s Snapshot) Encode() (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeSnapshot parses the persisted form. An empty string is an empty snapshot.
func DecodeSnapshot(raw string) (Snapshot, error) {
	var s Snapshot
	if raw == "" {
		return s, nil
	}
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}
