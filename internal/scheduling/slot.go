package scheduling

import "time"

// Slot is a computed candidate booking window. Slots are produced fresh on
// every availability query and are never persisted; identity is the
// start/end pair.
type Slot struct {
	SlotStart time.Time `json:"slotStart"`
	SlotEnd   time.Time `json:"slotEnd"`
	IsBlocked bool      `json:"isBlocked"`
}

// Overlaps reports whether the slot intersects [start, end) at all.
// Touching boundaries do not overlap.
func (s Slot) Overlaps(start, end time.Time) bool {
	return s.SlotStart.Before(end) && start.Before(s.SlotEnd)
}
