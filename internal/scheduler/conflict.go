package scheduler

// Session is the scheduling view of a pairwise study session.
//
// Date, Start and End are compared as plain strings. Callers are expected to
// use fixed-width formats (YYYY-MM-DD, HH:MM in 24h) so that lexicographic
// order matches chronological order.
type Session struct {
	ID           int64
	Participants []string
	Date         string
	Start        string
	End          string
	Status       Status
}

// Conflict details an overlapping confirmed session that blocks a confirmation.
type Conflict struct {
	WithSessionID int64
	Participant   string
}

// Overlaps reports whether two sessions share a date and their [start, end)
// intervals intersect. Touching intervals do not overlap.
func Overlaps(a, b Session) bool {
	if a.Date != b.Date {
		return false
	}
	return !(a.End <= b.Start || a.Start >= b.End)
}

// DetectConflict checks the candidate against the sessions of each of its
// participants. existing is keyed by participant username; only Confirmed
// sessions other than the candidate itself are considered.
//
// Participants are visited in the candidate's order and each participant's
// sessions in slice order, so the first conflict reported is deterministic.
func DetectConflict(candidate Session, existing map[string][]Session) (Conflict, bool) {
	for _, participant := range candidate.Participants {
		for _, other := range existing[participant] {
			if other.ID == candidate.ID {
				continue
			}
			if other.Status != StatusConfirmed {
				continue
			}
			if Overlaps(candidate, other) {
				return Conflict{WithSessionID: other.ID, Participant: participant}, true
			}
		}
	}
	return Conflict{}, false
}
