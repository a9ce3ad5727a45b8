package hold

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyStation = errors.New("station id is required")
	ErrInvalidDate  = errors.New("date must not be zero")
	ErrInvalidSlot  = errors.New("time slot must be HH:MM")
)

var timeSlotPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// SlotKey identifies one bookable unit: a station on a date at a time slot.
// Immutable once attached to a hold or booking.
type SlotKey struct {
	date      time.Time
	timeSlot  string
	stationID uuid.UUID
}

func NewSlotKey(date time.Time, timeSlot string, stationID uuid.UUID) (SlotKey, error) {
	if date.IsZero() {
		return SlotKey{}, ErrInvalidDate
	}
	if !timeSlotPattern.MatchString(timeSlot) {
		return SlotKey{}, ErrInvalidSlot
	}
	if stationID == uuid.Nil {
		return SlotKey{}, ErrEmptyStation
	}

	// Only the civil date matters for uniqueness; drop the time-of-day part.
	y, m, d := date.Date()
	return SlotKey{
		date:      time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		timeSlot:  timeSlot,
		stationID: stationID,
	}, nil
}

// ReconstructSlotKey rehydrates a key that was validated when written.
func ReconstructSlotKey(date time.Time, timeSlot string, stationID uuid.UUID) SlotKey {
	y, m, d := date.Date()
	return SlotKey{
		date:      time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		timeSlot:  timeSlot,
		stationID: stationID,
	}
}

func (k SlotKey) Date() time.Time      { return k.date }
func (k SlotKey) TimeSlot() string     { return k.timeSlot }
func (k SlotKey) StationID() uuid.UUID { return k.stationID }

func (k SlotKey) IsZero() bool {
	return k.stationID == uuid.Nil
}

func (k SlotKey) Equal(other SlotKey) bool {
	return k.date.Equal(other.date) && k.timeSlot == other.timeSlot && k.stationID == other.stationID
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.date.Format(time.DateOnly), k.timeSlot, k.stationID)
}

// SlotTime returns the slot's wall-clock start on its date.
func (k SlotKey) SlotTime() (time.Time, error) {
	t, err := time.Parse("15:04", k.timeSlot)
	if err != nil {
		return time.Time{}, ErrInvalidSlot
	}
	return time.Date(k.date.Year(), k.date.Month(), k.date.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}
