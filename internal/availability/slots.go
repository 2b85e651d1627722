// Package availability computes bookable time slots from pastor availability
// windows and detects duplicate bookings. It is pure: callers fetch the rows
// and pass them in, nothing here performs I/O.
package availability

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"agendapastoral/backend/internal/domain"
)

var ErrInvalidTimeFormat = errors.New("invalid time format")

// ParseClock parses a "15:04" wall-clock string into minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse(domain.TimeLayout, s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ValidateDate checks a "2006-01-02" calendar date string.
func ValidateDate(s string) error {
	if _, err := time.Parse(domain.DateLayout, s); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	return nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// GenerateTimeSlots enumerates every granularity-aligned slot start t with
// start <= t < end, ascending. GenerateTimeSlots("09:00", "11:00", 30) yields
// ["09:00" "09:30" "10:00" "10:30"]; the end instant is never a slot.
func GenerateTimeSlots(start, end string, granularityMinutes int) ([]string, error) {
	if granularityMinutes <= 0 {
		granularityMinutes = domain.DefaultSlotMinutes
	}
	startMin, err := ParseClock(start)
	if err != nil {
		return nil, err
	}
	endMin, err := ParseClock(end)
	if err != nil {
		return nil, err
	}

	var slots []string
	for t := startMin; t < endMin; t += granularityMinutes {
		slots = append(slots, formatClock(t))
	}
	return slots, nil
}

// ComputeAvailableSlots generates the slots of every window matching
// targetDate and removes the ones already booked for that date with the
// window's pastor. Slots falling inside a window's lunch break are skipped.
// Should more than one window exist for the same date (the schedule service
// rejects that, but old rows may violate it) their slots are concatenated as
// generated, without de-duplication.
func ComputeAvailableSlots(windows []domain.AvailabilityWindow, booked []domain.Appointment, targetDate string) ([]string, error) {
	if err := ValidateDate(targetDate); err != nil {
		return nil, err
	}

	free := []string{}
	for _, w := range windows {
		if w.Date != targetDate {
			continue
		}
		slots, err := GenerateTimeSlots(w.StartTime, w.EndTime, w.Granularity())
		if err != nil {
			return nil, err
		}

		lunchStart, lunchEnd := -1, -1
		if w.LunchStart != "" && w.LunchEnd != "" {
			if lunchStart, err = ParseClock(w.LunchStart); err != nil {
				return nil, err
			}
			if lunchEnd, err = ParseClock(w.LunchEnd); err != nil {
				return nil, err
			}
		}

		for _, slot := range slots {
			if lunchStart >= 0 {
				m, _ := ParseClock(slot)
				if m >= lunchStart && m < lunchEnd {
					continue
				}
			}
			if slotBooked(booked, w.PastorName, targetDate, slot) {
				continue
			}
			free = append(free, slot)
		}
	}
	return free, nil
}

func slotBooked(booked []domain.Appointment, pastorName, date, slot string) bool {
	for _, b := range booked {
		if b.Status == domain.StatusCancelled {
			continue
		}
		if b.PastorName == pastorName && b.Date == date && b.Time == slot {
			return true
		}
	}
	return false
}

// HasDuplicateBooking reports whether the person identified by name or phone
// already holds a non-terminal booking on targetDate with any pastor, and
// returns the conflicting records. Matching is exact on trimmed name OR exact
// on trimmed phone; only pending and confirmed appointments block a new
// booking. A true result means the caller must refuse the submission.
func HasDuplicateBooking(personName, personPhone, targetDate string, existing []domain.Appointment) (bool, []domain.Appointment) {
	name := strings.TrimSpace(personName)
	phone := strings.TrimSpace(personPhone)

	var conflicts []domain.Appointment
	for _, a := range existing {
		if a.Date != targetDate {
			continue
		}
		if a.Status != domain.StatusPending && a.Status != domain.StatusConfirmed {
			continue
		}
		sameName := name != "" && strings.TrimSpace(a.Name) == name
		samePhone := phone != "" && strings.TrimSpace(a.Phone) == phone
		if sameName || samePhone {
			conflicts = append(conflicts, a)
		}
	}
	return len(conflicts) > 0, conflicts
}
