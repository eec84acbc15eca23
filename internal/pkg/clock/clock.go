package clock

import "time"

// Clock abstracts time.Now so services can be driven from tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// Real returns the wall clock in UTC.
func Real() Clock { return realClock{} }

// Fixed always returns t.
type Fixed time.Time

func (f Fixed) Now() time.Time { return time.Time(f) }

// Date truncates t to midnight UTC of its calendar day.
func Date(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Nights counts calendar days between two dates.
func Nights(checkIn, checkOut time.Time) int {
	return int(Date(checkOut).Sub(Date(checkIn)).Hours() / 24)
}

// Days lists every date in [from, to).
func Days(from, to time.Time) []time.Time {
	var out []time.Time
	for d := Date(from); d.Before(Date(to)); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}
