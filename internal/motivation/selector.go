package motivation

import "time"

const quoteOffset = 3

// SelectDaily picks the verse and quote for the calendar date of date. The
// choice depends only on that date and the pool, never on shared random
// state. The returned item is stamped with now.
func (p *Pool) SelectDaily(date, now time.Time) Item {
	day := dayNumber(date)

	verse := p.verses[mod(day, int64(len(p.verses)))]
	quote := p.quotes[mod(day*int64(p.stride)+quoteOffset, int64(len(p.quotes)))]

	return Item{Verse: verse, Quote: quote, ServedAt: now}
}

// dayNumber counts days from 1970-01-01 to the civil date of t in t's own
// location.
func dayNumber(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// IsSameDay reports whether a and b fall on the same calendar date in loc.
func IsSameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

func mod(a, n int64) int {
	r := a % n
	if r < 0 {
		r += n
	}
	return int(r)
}
