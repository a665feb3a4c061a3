package theme

import (
	"strings"
	"testing"
)

func TestBar_Clamps(t *testing.T) {
	for _, pct := range []int{-10, 0, 45, 100, 250} {
		bar := Bar(pct, 10)
		n := strings.Count(bar, "█") + strings.Count(bar, "░")
		if n != 10 {
			t.Errorf("Bar(%d) has %d cells, want 10", pct, n)
		}
	}
	if got := strings.Count(Bar(50, 10), "█"); got != 5 {
		t.Errorf("Bar(50) filled = %d, want 5", got)
	}
}

func TestVerdict(t *testing.T) {
	if !strings.Contains(Verdict(true), "PASSED") || !strings.Contains(Verdict(false), "FAILED") {
		t.Error("verdict text missing")
	}
}
