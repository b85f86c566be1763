package refresh

import (
	"errors"
	"strings"
	"time"
)

// Event announces a new version of a data feed. IDs optionally lists
// identifiers whose detail changed with it.
type Event struct {
	Version int       `json:"version"`
	Dataset string    `json:"dataset"`
	Seq     uint64    `json:"seq"`
	TS      time.Time `json:"ts"`
	IDs     []string  `json:"ids,omitempty"`
}

func (e Event) Validate() error {
	if e.Version != 1 {
		return errors.New("version must be 1")
	}
	if strings.TrimSpace(e.Dataset) == "" {
		return errors.New("dataset is required")
	}
	if e.Seq == 0 {
		return errors.New("seq must be > 0")
	}
	if e.TS.IsZero() {
		return errors.New("ts is required")
	}
	return nil
}
