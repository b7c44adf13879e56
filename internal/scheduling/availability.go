package scheduling

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"clinic-booking-server/internal/models"
)

// AvailableSlots computes the bookable slots for a doctor on one calendar
// date, interpreted in the doctor's timezone. slotMinutes overrides the
// doctor's configured duration when > 0. A weekday with no availability
// blocks yields an empty result, not an error.
func (s *Service) AvailableSlots(ctx context.Context, doctorID string, date time.Time, slotMinutes int) ([]Slot, error) {
	profile, err := s.store.DoctorProfileByUserID(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(profile.Timezone)
	if err != nil {
		return nil, fmt.Errorf("doctor %s has invalid timezone %q: %w", doctorID, profile.Timezone, err)
	}

	minutes := profile.SlotMinutes
	if slotMinutes > 0 {
		minutes = slotMinutes
	}
	duration := time.Duration(minutes) * time.Minute

	// The date's calendar components name the doctor-local day; slot
	// boundaries leave this function as UTC instants.
	year, month, day := date.Date()
	dayStart := time.Date(year, month, day, 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)
	weekday := int(dayStart.Weekday())

	var slots []Slot
	for _, block := range profile.Availability {
		if block.Weekday != weekday {
			continue
		}
		tiled, err := tileBlock(dayStart, block, duration)
		if err != nil {
			return nil, err
		}
		slots = append(slots, tiled...)
	}
	if len(slots) == 0 {
		return []Slot{}, nil
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].SlotStart.Before(slots[j].SlotStart) })

	appts, err := s.store.AppointmentsInWindow(ctx, doctorID, dayStart.UTC(), dayEnd.UTC())
	if err != nil {
		return nil, err
	}
	blocked, err := s.store.BlockedSlotsInWindow(ctx, doctorID, dayStart.UTC(), dayEnd.UTC())
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	out := make([]Slot, 0, len(slots))
	for _, slot := range slots {
		if !slot.SlotStart.After(now) {
			continue
		}
		for _, a := range appts {
			if slot.Overlaps(a.StartsAt, a.EndsAt) {
				slot.IsBlocked = true
				break
			}
		}
		if !slot.IsBlocked {
			for _, b := range blocked {
				if slot.Overlaps(b.StartsAt, b.EndsAt) {
					slot.IsBlocked = true
					break
				}
			}
		}
		out = append(out, slot)
	}
	return out, nil
}

// tileBlock tiles one weekly availability block into consecutive
// non-overlapping intervals of exactly duration, anchored at the block's
// start. A trailing partial interval is discarded.
func tileBlock(dayStart time.Time, block models.AvailabilityBlock, duration time.Duration) ([]Slot, error) {
	startH, startM, err := parseClock(block.StartTime)
	if err != nil {
		return nil, fmt.Errorf("availability block %s: %w", block.ID, err)
	}
	endH, endM, err := parseClock(block.EndTime)
	if err != nil {
		return nil, fmt.Errorf("availability block %s: %w", block.ID, err)
	}

	loc := dayStart.Location()
	blockStart := time.Date(dayStart.Year(), dayStart.Month(), dayStart.Day(), startH, startM, 0, 0, loc)
	blockEnd := time.Date(dayStart.Year(), dayStart.Month(), dayStart.Day(), endH, endM, 0, 0, loc)

	var slots []Slot
	for t := blockStart; !t.Add(duration).After(blockEnd); t = t.Add(duration) {
		slots = append(slots, Slot{
			SlotStart: t.UTC(),
			SlotEnd:   t.Add(duration).UTC(),
		})
	}
	return slots, nil
}

// parseClock parses an "HH:MM" wall-clock string.
func parseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}
