// Package streak tracks consecutive study days and the trophies earned by
// keeping them up.
package streak

import "time"

// DayOf truncates an instant to midnight of its calendar day in loc. Streak
// day boundaries follow the user's local calendar, so a day containing a DST
// transition is an hour longer or shorter; that ambiguity is inherent and
// left as-is.
func DayOf(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// Update applies one completed study session on day `today` to the streak
// counters. Same-day repeats leave the streak unchanged, a session on the day
// after the last active one extends it, and anything else (first session ever
// or a gap of more than one day) resets it to 1.
func Update(lastActiveDay *time.Time, today time.Time, current, longest int) (int, int) {
	newStreak := 1
	if lastActiveDay != nil {
		switch {
		case sameDay(*lastActiveDay, today):
			newStreak = current
		case sameDay(lastActiveDay.AddDate(0, 0, 1), today):
			newStreak = current + 1
		}
	}

	if newStreak > longest {
		longest = newStreak
	}
	return newStreak, longest
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
