package progression

import (
	"fmt"
	"sort"

	"github.com/pianova-hub/piano-progression-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL THRESHOLD TABLE
// Ordered, contiguous, non-overlapping XP ranges mapped to level numbers.
// Authored by administrators; read-only to the progression service.
// ══════════════════════════════════════════════════════════════════════════════

// LevelThreshold maps one XP range to a level.
type LevelThreshold struct {
	// Level - the level number this range maps to.
	Level Level

	// MinXP - inclusive lower bound of the range.
	MinXP XP

	// MaxXP - inclusive upper bound; nil marks the single unbounded top level.
	MaxXP *XP

	// Label - display name, e.g. "Beginner", "Virtuoso".
	Label string
}

// Unbounded reports whether this is the open-ended top threshold.
func (t LevelThreshold) Unbounded() bool {
	return t.MaxXP == nil
}

// Contains reports whether xp falls inside this threshold's range.
func (t LevelThreshold) Contains(xp XP) bool {
	if xp < t.MinXP {
		return false
	}
	return t.MaxXP == nil || xp <= *t.MaxXP
}

// LevelTable is the full ordered threshold table.
type LevelTable struct {
	thresholds []LevelThreshold
}

// NewLevelTable builds and validates a table from its thresholds.
// The input order does not matter; the table sorts by MinXP.
func NewLevelTable(thresholds []LevelThreshold) (*LevelTable, error) {
	sorted := make([]LevelThreshold, len(thresholds))
	copy(sorted, thresholds)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MinXP < sorted[j].MinXP
	})

	table := &LevelTable{thresholds: sorted}
	if err := table.validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// validate enforces the table invariants: non-empty, starts at 0,
// contiguous and non-overlapping ranges, exactly one unbounded top level.
// A violation is a configuration error - reported, never silently resolved.
func (t *LevelTable) validate() error {
	if len(t.thresholds) == 0 {
		return shared.NewDomainError("progression", "LevelTable", shared.ErrConfiguration, "threshold table is empty")
	}

	if t.thresholds[0].MinXP != 0 {
		return shared.NewDomainError("progression", "LevelTable", shared.ErrConfiguration,
			fmt.Sprintf("first threshold must start at 0 XP, starts at %d", t.thresholds[0].MinXP))
	}

	for i, th := range t.thresholds {
		last := i == len(t.thresholds)-1

		if th.Unbounded() && !last {
			return shared.NewDomainError("progression", "LevelTable", shared.ErrConfiguration,
				fmt.Sprintf("level %d is unbounded but not the top threshold", th.Level))
		}
		if last {
			if !th.Unbounded() {
				return shared.NewDomainError("progression", "LevelTable", shared.ErrConfiguration,
					"top threshold must be unbounded (max_xp = null)")
			}
			continue
		}

		if *th.MaxXP < th.MinXP {
			return shared.NewDomainError("progression", "LevelTable", shared.ErrConfiguration,
				fmt.Sprintf("level %d has max_xp below min_xp", th.Level))
		}

		next := t.thresholds[i+1]
		if next.MinXP != *th.MaxXP+1 {
			return shared.NewDomainError("progression", "LevelTable", shared.ErrConfiguration,
				fmt.Sprintf("gap or overlap between level %d (max %d) and level %d (min %d)",
					th.Level, *th.MaxXP, next.Level, next.MinXP))
		}
	}

	return nil
}

// LevelFor returns the threshold whose range contains xp. Scans from the
// highest MinXP down and returns the first threshold with MinXP <= xp.
// Negative xp is a caller contract violation - XP is non-negative by
// construction.
func (t *LevelTable) LevelFor(xp XP) (LevelThreshold, error) {
	if xp < 0 {
		return LevelThreshold{}, shared.NewDomainError("progression", "LevelFor", shared.ErrNegativeValue, "XP cannot be negative")
	}

	for i := len(t.thresholds) - 1; i >= 0; i-- {
		th := t.thresholds[i]
		if th.MinXP <= xp {
			if !th.Contains(xp) {
				// Unreachable for a validated table; kept as a guard
				// against hand-built tables.
				break
			}
			return th, nil
		}
	}

	return LevelThreshold{}, shared.NewDomainError("progression", "LevelFor", shared.ErrConfiguration,
		fmt.Sprintf("no threshold covers %d XP", xp))
}

// Thresholds returns a copy of the ordered thresholds.
func (t *LevelTable) Thresholds() []LevelThreshold {
	out := make([]LevelThreshold, len(t.thresholds))
	copy(out, t.thresholds)
	return out
}

// Len returns the number of thresholds.
func (t *LevelTable) Len() int {
	return len(t.thresholds)
}

// BoundedXP is a helper for building thresholds with a finite upper bound.
func BoundedXP(v int) *XP {
	xp := XP(v)
	return &xp
}
