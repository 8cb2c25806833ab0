// Package matching implements the preference-scoring engine: pure
// computation over preference data, with no store access. Weighted
// scoring rewards shared availability and teach/learn synergy, and a
// threshold filters out weak pairings.
package matching

import (
	"sort"
	"strings"

	"github.com/studysync/tutormatch/internal/db"
)

// Weight constants for the score.
const (
	AvailabilityWeight   = 2.0 // shared availability is important
	PartialSynergyWeight = 0.5 // one-way teaching
	TwoWaySynergyBonus   = 0.5 // extra bonus if teaching goes both ways
	MatchThreshold       = 1.0 // minimal score for a valid match
)

// TokenSet is a case-insensitive set of trimmed tokens parsed from a
// comma-separated preference field.
type TokenSet map[string]struct{}

// ParseTokenSet parses "Mon, wed,MON" into {"mon","wed"}. Blank input
// yields an empty set.
func ParseTokenSet(csv string) TokenSet {
	set := TokenSet{}
	for _, raw := range strings.Split(csv, ",") {
		tok := strings.ToLower(strings.TrimSpace(raw))
		if tok == "" {
			continue
		}
		set[tok] = struct{}{}
	}
	return set
}

// Intersect returns the tokens present in both sets.
func (s TokenSet) Intersect(other TokenSet) TokenSet {
	out := TokenSet{}
	for tok := range s {
		if _, ok := other[tok]; ok {
			out[tok] = struct{}{}
		}
	}
	return out
}

// Union returns the tokens present in either set.
func (s TokenSet) Union(other TokenSet) TokenSet {
	out := TokenSet{}
	for tok := range s {
		out[tok] = struct{}{}
	}
	for tok := range other {
		out[tok] = struct{}{}
	}
	return out
}

// Values returns the tokens sorted, for deterministic output.
func (s TokenSet) Values() []string {
	out := make([]string, 0, len(s))
	for tok := range s {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

// Profile is a user's parsed preference fields.
type Profile struct {
	Days  TokenSet
	Teach TokenSet
	Learn TokenSet
}

// NewProfile parses a preference row into a Profile.
func NewProfile(pref *db.Preference) Profile {
	if pref == nil {
		return Profile{Days: TokenSet{}, Teach: TokenSet{}, Learn: TokenSet{}}
	}
	return Profile{
		Days:  ParseTokenSet(pref.AvailableDays),
		Teach: ParseTokenSet(pref.SubjectsToTeach),
		Learn: ParseTokenSet(pref.SubjectsToLearn),
	}
}

// Candidate pairs a user row with their preference row for scoring.
type Candidate struct {
	User db.User
	Pref db.Preference
}

// Result is one scored match suggestion. CommonSubjects is the union
// of the two teach/learn intersections, not the day overlap.
type Result struct {
	User           db.User  `json:"user"`
	CommonDays     []string `json:"commonDays"`
	CommonSubjects []string `json:"commonSubjects"`
	Score          float64  `json:"matchScore"`
}

// Score computes the weighted score between two profiles and returns
// the shared days and synergy subjects. The score is symmetric: both
// synergy terms are independent intersections whose union does not
// depend on which profile is "current".
func Score(current, other Profile) (score float64, commonDays, commonSubjects TokenSet) {
	commonDays = current.Days.Intersect(other.Days)

	currentTeaches := current.Teach.Intersect(other.Learn)
	otherTeaches := current.Learn.Intersect(other.Teach)

	if len(commonDays) > 0 {
		score += AvailabilityWeight
	}
	if len(currentTeaches) > 0 {
		score += PartialSynergyWeight
	}
	if len(otherTeaches) > 0 {
		score += PartialSynergyWeight
	}
	if len(currentTeaches) > 0 && len(otherTeaches) > 0 {
		score += TwoWaySynergyBonus
	}

	return score, commonDays, currentTeaches.Union(otherTeaches)
}

// ScoreAndFilter scores every candidate against the current profile,
// drops candidates in the exclusion set or strictly below the match
// threshold, and returns the survivors sorted by descending score.
// Ties keep candidate iteration order (stable sort). Both the narrow
// and fallback phases run through this single routine.
func ScoreAndFilter(current Profile, candidates []Candidate, excluded map[uint64]struct{}) []Result {
	results := make([]Result, 0, len(candidates))

	for _, c := range candidates {
		if _, skip := excluded[c.User.ID]; skip {
			continue
		}

		other := NewProfile(&c.Pref)
		score, days, subjects := Score(current, other)
		if score < MatchThreshold {
			continue
		}

		results = append(results, Result{
			User:           c.User,
			CommonDays:     days.Values(),
			CommonSubjects: subjects.Values(),
			Score:          score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results
}
