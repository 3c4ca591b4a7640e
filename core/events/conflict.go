package events

import (
	"time"

	"github.com/kilianp07/dronecoord/core/model"
)

// ConflictScanEvent is published after DetectAll completes.
type ConflictScanEvent struct {
	Conflicts []model.Conflict
	Time      time.Time
}
