package election

import (
	"fmt"
	"time"

	eboto_errors "eboto/pkg/errors"
)

// WholeDay reports whether the daily voting window is unrestricted (0..24).
func (e Election) WholeDay() bool {
	return e.VotingHourStart == 0 && e.VotingHourEnd == 24
}

// WithinVotingHours checks the local hour against [VotingHourStart, VotingHourEnd).
func (e Election) WithinVotingHours(now time.Time, loc *time.Location) bool {
	if e.WholeDay() {
		return true
	}
	h := now.In(loc).Hour()
	return h >= e.VotingHourStart && h < e.VotingHourEnd
}

// IsOpen reports whether a ballot may be accepted at now.
func (e Election) IsOpen(now time.Time, loc *time.Location) bool {
	if e.IsDeleted() || now.Before(e.StartDate) || now.After(e.EndDate) {
		return false
	}
	return e.WithinVotingHours(now, loc)
}

// OpensAt is the first instant the election accepts ballots.
func (e Election) OpensAt(loc *time.Location) time.Time {
	start := e.StartDate.In(loc)
	open := atHour(start, 0, e.VotingHourStart, loc)
	if !start.After(open) {
		return open
	}
	if e.WithinVotingHours(start, loc) {
		return e.StartDate
	}
	return atHour(start, 1, e.VotingHourStart, loc)
}

// ClosesAt is the end boundary: after it the election never accepts ballots again.
func (e Election) ClosesAt(loc *time.Location) time.Time {
	if e.WholeDay() {
		return e.EndDate
	}
	end := e.EndDate.In(loc)
	closing := atHour(end, 0, e.VotingHourEnd, loc)
	if end.Before(atHour(end, 0, e.VotingHourStart, loc)) {
		closing = atHour(end, -1, e.VotingHourEnd, loc)
	}
	if closing.Before(e.EndDate) {
		return closing
	}
	return e.EndDate
}

func (e Election) HasStarted(now time.Time, loc *time.Location) bool {
	return !now.Before(e.OpensAt(loc))
}

func (e Election) HasEnded(now time.Time, loc *time.Location) bool {
	closing := e.ClosesAt(loc)
	if closing.Equal(e.EndDate) {
		return now.After(closing)
	}
	return !now.Before(closing)
}

// Ongoing is true between the opening instant and the end boundary, regardless
// of whether the current hour is inside the daily window.
func (e Election) Ongoing(now time.Time, loc *time.Location) bool {
	return e.HasStarted(now, loc) && !e.HasEnded(now, loc)
}

// Validate checks the temporal and publicity invariants.
func (e Election) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("%w: name is required", eboto_errors.ErrInvalidInput)
	}
	if !e.StartDate.Before(e.EndDate) {
		return fmt.Errorf("%w: start_date must be before end_date", eboto_errors.ErrInvalidInput)
	}
	if e.VotingHourStart < 0 || e.VotingHourStart >= e.VotingHourEnd || e.VotingHourEnd > 24 {
		return fmt.Errorf("%w: voting hours must satisfy 0 <= start < end <= 24", eboto_errors.ErrInvalidInput)
	}
	if !e.Publicity.Valid() {
		return fmt.Errorf("%w: unknown publicity %q", eboto_errors.ErrInvalidInput, e.Publicity)
	}
	return nil
}

func (p Position) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: position name is required", eboto_errors.ErrInvalidInput)
	}
	if p.Min < 0 || p.Max < 1 || p.Min > p.Max {
		return fmt.Errorf("%w: position bounds must satisfy 0 <= min <= max and max >= 1", eboto_errors.ErrInvalidInput)
	}
	return nil
}

// atHour returns the local day of t shifted by dayOffset, at hour h (24 rolls over).
func atHour(t time.Time, dayOffset, h int, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+dayOffset, h, 0, 0, 0, loc)
}
