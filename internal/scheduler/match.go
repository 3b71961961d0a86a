package scheduler

import "sort"

// Window is a free-time window of a user.
type Window struct {
	Date  string
	Start string
	End   string
}

// Profile is the subset of a user consulted by the match heuristic.
type Profile struct {
	Username     string
	Courses      []string
	Availability []Window
}

// SuggestMatches returns the usernames of other profiles that share at least
// one course with self and have at least one availability window on a date
// self is also available. Times within a date are not compared.
//
// The result is sorted by username regardless of the order of others.
func SuggestMatches(self Profile, others []Profile) []string {
	myCourses := make(map[string]struct{}, len(self.Courses))
	for _, c := range self.Courses {
		myCourses[c] = struct{}{}
	}
	myDates := make(map[string]struct{}, len(self.Availability))
	for _, w := range self.Availability {
		myDates[w.Date] = struct{}{}
	}

	matches := make([]string, 0)
	for _, candidate := range others {
		if candidate.Username == self.Username {
			continue
		}
		if !sharesCourse(myCourses, candidate.Courses) {
			continue
		}
		if !sharesDate(myDates, candidate.Availability) {
			continue
		}
		matches = append(matches, candidate.Username)
	}

	sort.Strings(matches)
	if len(matches) == 0 {
		return nil
	}
	return matches
}

func sharesCourse(mine map[string]struct{}, theirs []string) bool {
	for _, c := range theirs {
		if _, ok := mine[c]; ok {
			return true
		}
	}
	return false
}

func sharesDate(mine map[string]struct{}, theirs []Window) bool {
	for _, w := range theirs {
		if _, ok := mine[w.Date]; ok {
			return true
		}
	}
	return false
}
