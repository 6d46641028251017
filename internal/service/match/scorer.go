package match

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// MaxScore caps a candidate's compatibility score.
const MaxScore = 100

// Profile is the part of a user the scorer looks at.
type Profile struct {
	Skills     []string
	LookingFor []string
	Bio        string
}

// Score rates how well candidate fits requester:
//
//	+2 per skill both share
//	+3 per requester "looking for" entry the candidate has as a skill
//	+3 per requester skill the candidate is looking for
//	+1 per candidate bio word (longer than 3 characters) that also appears
//	   in the requester's bio
//
// The sum is capped at MaxScore. Skill matching is exact.
func Score(requester, candidate Profile) int {
	candidateSkills := toSet(candidate.Skills)
	candidateWants := toSet(candidate.LookingFor)

	score := 0
	for _, s := range requester.Skills {
		if _, ok := candidateSkills[s]; ok {
			score += 2
		}
	}
	for _, want := range requester.LookingFor {
		if _, ok := candidateSkills[want]; ok {
			score += 3
		}
	}
	for _, s := range requester.Skills {
		if _, ok := candidateWants[s]; ok {
			score += 3
		}
	}

	if requester.Bio != "" && candidate.Bio != "" {
		mine := toSet(strings.Fields(strings.ToLower(requester.Bio)))
		for _, w := range strings.Fields(strings.ToLower(candidate.Bio)) {
			if utf8.RuneCountInString(w) <= 3 {
				continue
			}
			if _, ok := mine[w]; ok {
				score++
			}
		}
	}

	if score > MaxScore {
		return MaxScore
	}
	return score
}

// Scored pairs a candidate with its score.
type Scored[T any] struct {
	Item  T
	Score int
}

// Rank scores every candidate, orders them by score descending and keeps at
// most limit. Equal scores keep their input order.
func Rank[T any](requester Profile, candidates []T, profile func(T) Profile, limit int) []Scored[T] {
	out := make([]Scored[T], 0, len(candidates))
	for _, c := range candidates {
		out = append(out, Scored[T]{Item: c, Score: Score(requester, profile(c))})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, s := range items {
		set[s] = struct{}{}
	}
	return set
}
