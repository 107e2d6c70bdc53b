package rewards

import "testing"

func TestLevelForXP(t *testing.T) {
	curve := LevelCurve{BaseXP: 100, Increment: 50}

	tests := []struct {
		xp      int
		level   int
		floor   int
		ceiling int
	}{
		{0, 1, 0, 100},
		{99, 1, 0, 100},
		{100, 2, 100, 250},
		{249, 2, 100, 250},
		{250, 3, 250, 450},
		{450, 4, 450, 700},
	}
	for _, tt := range tests {
		level, floor, ceiling := LevelForXP(tt.xp, curve)
		if level != tt.level || floor != tt.floor || ceiling != tt.ceiling {
			t.Errorf("LevelForXP(%d) = (%d, %d, %d), want (%d, %d, %d)",
				tt.xp, level, floor, ceiling, tt.level, tt.floor, tt.ceiling)
		}
	}
}

func TestLevelForXPDefaults(t *testing.T) {
	level, floor, ceiling := LevelForXP(0, LevelCurve{})
	if level != 1 || floor != 0 || ceiling != defaultLevelBaseXP {
		t.Errorf("empty curve = (%d, %d, %d), want (1, 0, %d)", level, floor, ceiling, defaultLevelBaseXP)
	}

	if level, _, _ := LevelForXP(-50, LevelCurve{}); level != 1 {
		t.Errorf("negative xp level = %d, want 1", level)
	}
}

// TestLevelSelfConsistency checks that the level derived from total XP alone
// matches the one reached by applying awards incrementally.
func TestLevelSelfConsistency(t *testing.T) {
	curve := LevelCurve{BaseXP: 100, Increment: 50}
	total := 0
	for _, award := range []int{10, 90, 45, 200, 5, 333, 17} {
		total += award
		level, floor, ceiling := LevelForXP(total, curve)
		if total < floor || total >= ceiling {
			t.Fatalf("xp %d outside window [%d, %d) at level %d", total, floor, ceiling, level)
		}
	}
}
