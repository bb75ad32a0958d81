package progress

// XPPerLevelUnit is the constant from the level curve: a player is at
// level L once XPTotal >= 100 * L^2, i.e. level = floor(sqrt(xp / 100)).
const XPPerLevelUnit = 100

// XPForLevel returns the total XP threshold required to be at the given
// level. Level 0 requires 0 XP. The threshold function is exact integer
// arithmetic so level boundaries never drift with floating point.
func XPForLevel(level int) int {
	if level <= 0 {
		return 0
	}
	return XPPerLevelUnit * level * level
}

// Level returns the highest level L such that totalXP >= XPForLevel(L).
func Level(totalXP int) int {
	if totalXP <= 0 {
		return 0
	}

	// Exponential search upper bound, then binary search.
	low := 0
	high := 1
	for XPForLevel(high) <= totalXP {
		low = high
		high *= 2
		if high > 1_000_000 {
			break
		}
	}

	for low+1 < high {
		mid := low + (high-low)/2
		if XPForLevel(mid) <= totalXP {
			low = mid
		} else {
			high = mid
		}
	}
	return low
}

// XPToNext returns how much XP is still needed to reach the next level.
func XPToNext(totalXP int) int {
	next := XPForLevel(Level(totalXP) + 1)
	remaining := next - totalXP
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// FractionToNext returns progress within the current level as a fraction
// in [0, 1).
func FractionToNext(totalXP int) float64 {
	lvl := Level(totalXP)
	floor := XPForLevel(lvl)
	ceil := XPForLevel(lvl + 1)
	if ceil <= floor {
		return 0
	}
	return float64(totalXP-floor) / float64(ceil-floor)
}
