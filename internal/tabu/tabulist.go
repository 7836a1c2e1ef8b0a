// Package tabu implements the tabu list (component C5): a move-label
// to remaining-tenure map with randomized default tenure and a
// temporary boost that reverts itself after a fixed number of further
// decrements.
package tabu

import (
	"math/rand"

	"github.com/schedcu/surgopt/internal/entity"
)

// List maps a move's structural key to its remaining tenure.
type List struct {
	items      map[string]int
	minTenure  int
	maxTenure  int
	rng        *rand.Rand
	boosting   bool
	preBoostMin int
	preBoostMax int
	boostRemaining int
}

// New constructs a List. defaultTenure seeds min/max when they are not
// both given explicitly: min defaults to max(1, defaultTenure/2), max
// defaults to defaultTenure.
func New(defaultTenure, minTenure, maxTenure int, rng *rand.Rand) *List {
	if minTenure <= 0 {
		minTenure = defaultTenure / 2
		if minTenure < 1 {
			minTenure = 1
		}
	}
	if maxTenure <= 0 {
		maxTenure = defaultTenure
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &List{items: make(map[string]int), minTenure: minTenure, maxTenure: maxTenure, rng: rng}
}

// Add inserts move with an explicit tenure, or a tenure sampled
// uniformly from [minTenure,maxTenure] when tenure is 0.
func (l *List) Add(move entity.TabuMove, tenure int) {
	if tenure <= 0 {
		tenure = l.randomTenure()
	}
	l.items[move.Key()] = tenure
}

func (l *List) randomTenure() int {
	if l.maxTenure <= l.minTenure {
		return l.minTenure
	}
	return l.minTenure + l.rng.Intn(l.maxTenure-l.minTenure+1)
}

// IsTabu reports whether move's label currently carries tenure.
func (l *List) IsTabu(move entity.TabuMove) bool {
	_, ok := l.items[move.Key()]
	return ok
}

// Tenure returns move's remaining tenure, or 0 if it is not tabu.
func (l *List) Tenure(move entity.TabuMove) int {
	return l.items[move.Key()]
}

// DecrementAll reduces every entry's tenure by one, removing any that
// reach zero, then advances the boost countdown (if one is active) and
// reverts the tenure range once it elapses.
func (l *List) DecrementAll() {
	for key, tenure := range l.items {
		if tenure <= 1 {
			delete(l.items, key)
		} else {
			l.items[key] = tenure - 1
		}
	}

	if l.boosting {
		l.boostRemaining--
		if l.boostRemaining <= 0 {
			l.minTenure = l.preBoostMin
			l.maxTenure = l.preBoostMax
			l.boosting = false
		}
	}
}

// Clear empties the tabu list. It does not affect an in-progress boost.
func (l *List) Clear() {
	l.items = make(map[string]int)
}

// Boost temporarily multiplies every current entry's tenure by factor
// and raises the range future insertions draw from by the same
// factor, for duration further DecrementAll calls, after which both
// revert to their pre-boost values. A boost in progress is replaced by
// a new one rather than stacked.
func (l *List) Boost(factor float64, duration int) {
	for key, tenure := range l.items {
		l.items[key] = int(float64(tenure) * factor)
	}

	if !l.boosting {
		l.preBoostMin = l.minTenure
		l.preBoostMax = l.maxTenure
	}
	l.minTenure = int(float64(l.minTenure) * factor)
	l.maxTenure = int(float64(l.maxTenure) * factor)
	l.boosting = true
	l.boostRemaining = duration
}

// Len reports how many moves are currently tabu.
func (l *List) Len() int {
	return len(l.items)
}

// MinTenure and MaxTenure expose the current (possibly boosted) range.
func (l *List) MinTenure() int { return l.minTenure }
func (l *List) MaxTenure() int { return l.maxTenure }

// SetRange overrides the tenure range directly. The driver's algorithm
// variants do not call it; they pass an explicit tenure to Add.
func (l *List) SetRange(minTenure, maxTenure int) {
	l.minTenure = minTenure
	l.maxTenure = maxTenure
}
