package testutil

import (
	"errors"

	"ddbackup/internal/catalog"
)

// MemoryRecorder collects sync events in memory. Set Fail to make Record return an error.
type MemoryRecorder struct {
	Events []catalog.SyncEvent
	Fail   bool
}

func (r *MemoryRecorder) Record(event catalog.SyncEvent) error {
	if r.Fail {
		return errors.New("recorder failure")
	}
	r.Events = append(r.Events, event)
	return nil
}

var _ catalog.Recorder = (*MemoryRecorder)(nil)
