package rewards

// LevelForXP maps cumulative XP to a level and that level's XP window.
// The XP needed per level starts at the curve base and grows by the curve
// increment each level. The function is pure: stored level/floor/ceiling
// fields are a cache that can always be re-derived from total XP alone.
func LevelForXP(xp int, curve LevelCurve) (level, floor, ceiling int) {
	if curve.BaseXP <= 0 {
		curve.BaseXP = defaultLevelBaseXP
	}
	if curve.Increment < 0 {
		curve.Increment = 0
	}
	if xp < 0 {
		xp = 0
	}

	level = 1
	floor = 0
	need := curve.BaseXP
	for xp >= floor+need {
		floor += need
		need += curve.Increment
		level++
	}
	return level, floor, floor + need
}
