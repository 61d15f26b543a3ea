// Package scoring turns a learner's per-question history into a mastery
// label and a priority weight used to rank practice content.
package scoring

import (
	"math"
	"time"
)

// Mastery is the coarse label summarizing a learner's history on one question.
type Mastery string

const (
	MasteryNew        Mastery = "new"
	MasteryStruggling Mastery = "struggling"
	MasteryImproving  Mastery = "improving"
	MasteryMastered   Mastery = "mastered"
)

// unseenPriority is the fixed mid-priority for never-attempted items.
// Unseen items are deliberately not folded into the smoothed failure-rate
// formula so they are neither starved nor dominant.
const unseenPriority = 0.5

// recencyDecayRate controls how fast the recency boost fades per day.
const recencyDecayRate = 0.1

// recencyFloor is the fraction of the un-boosted priority that survives
// no matter how stale the last attempt is.
const recencyFloor = 0.3

// Score is the derived ranking for one question. Recomputed on every read,
// never persisted.
type Score struct {
	Mastery  Mastery
	Priority float64
}

// Classify returns the mastery label for the given attempt counts.
func Classify(successes, failures int) Mastery {
	switch {
	case successes+failures == 0:
		return MasteryNew
	case successes >= 3 && failures == 0:
		return MasteryMastered
	case failures > successes:
		return MasteryStruggling
	default:
		return MasteryImproving
	}
}

// Compute scores a question from its attempt counts and the time of the
// last attempt. lastAttempt may be nil for rows that track counts but lost
// their timestamp; such rows get no recency adjustment.
//
// The priority is a Laplace-smoothed failure rate, (f+1)/(total+1), clamped
// to 1.0. It is strictly increasing in failures for fixed successes and
// strictly decreasing in successes for fixed failures, and always in (0, 1]
// once the item has been attempted.
func Compute(successes, failures int, lastAttempt *time.Time, now time.Time) Score {
	total := successes + failures
	if total == 0 {
		return Score{Mastery: MasteryNew, Priority: unseenPriority}
	}

	priority := math.Min(1.0, float64(failures+1)/float64(total+1))

	if lastAttempt != nil {
		days := now.Sub(*lastAttempt).Hours() / 24
		boost := math.Exp(-recencyDecayRate * days)
		priority *= recencyFloor + (1-recencyFloor)*boost
	}

	return Score{
		Mastery:  Classify(successes, failures),
		Priority: priority,
	}
}
