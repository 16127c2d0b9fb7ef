package statemachine

import (
	"fmt"

	"github.com/jake-scott/snoo-buttons/internal/pkg/snooapi"
)

// MaxRank is the rank of the highest soothing level
const MaxRank = 4

// Ordering ranks the active levels, BASELINE=0 .. LEVEL4=4.  The identity of
// the zero entry depends on whether the baby is being weaned, which is fixed
// for the lifetime of a session.
type Ordering struct {
	levels [MaxRank + 1]snooapi.Level
}

// NewOrdering returns the level ordering for a session
func NewOrdering(weaning bool) Ordering {
	baseline := snooapi.LevelBaseline
	if weaning {
		baseline = snooapi.LevelWeaningBaseline
	}

	return Ordering{
		levels: [MaxRank + 1]snooapi.Level{
			baseline,
			snooapi.LevelOne,
			snooapi.LevelTwo,
			snooapi.LevelThree,
			snooapi.LevelFour,
		},
	}
}

// Baseline returns the level a session starts at
func (o Ordering) Baseline() snooapi.Level {
	return o.levels[0]
}

// Weaning reports whether this ordering uses the weaning baseline
func (o Ordering) Weaning() bool {
	return o.levels[0] == snooapi.LevelWeaningBaseline
}

// LevelForInt returns the level with the given rank
func (o Ordering) LevelForInt(rank int) (snooapi.Level, error) {
	if rank < 0 || rank > MaxRank {
		return snooapi.LevelNone, fmt.Errorf("level rank %d out of range 0-%d", rank, MaxRank)
	}

	return o.levels[rank], nil
}

// Rank returns the rank of an active level.  Both baseline variants rank 0.
func (o Ordering) Rank(level snooapi.Level) (int, bool) {
	switch level {
	case snooapi.LevelBaseline, snooapi.LevelWeaningBaseline:
		return 0, true
	}

	for i, l := range o.levels {
		if l == level {
			return i, true
		}
	}

	return 0, false
}
