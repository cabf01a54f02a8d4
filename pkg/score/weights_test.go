package score

import (
	"math"
	"strings"
	"testing"
)

func TestDefaultWeightTablesSumToOne(t *testing.T) {
	for _, mode := range []Mode{ModeFull, ModeNoSize, ModeNoTransit, ModeMinimal} {
		w := DefaultWeights(mode)
		if math.Abs(w.Sum()-1.0) > weightSumTolerance {
			t.Errorf("mode %s: weights sum to %v", mode, w.Sum())
		}
		if err := w.Validate(); err != nil {
			t.Errorf("mode %s: %v", mode, err)
		}
	}
}

func TestUnusedFactorsPinnedToZero(t *testing.T) {
	if w := DefaultWeights(ModeNoSize); w.Size != 0 {
		t.Errorf("no-size mode carries size weight %v", w.Size)
	}
	if w := DefaultWeights(ModeNoTransit); w.TransitTime != 0 {
		t.Errorf("no-transit mode carries transit weight %v", w.TransitTime)
	}
	w := DefaultWeights(ModeMinimal)
	if w.Size != 0 || w.TransitTime != 0 || w.Price != 0 || w.Balance != 0 {
		t.Errorf("minimal mode carries unused weights: %+v", w)
	}
}

func TestValidateRejectsBadSum(t *testing.T) {
	w := DefaultWeights(ModeFull)
	w.Balance -= 0.03 // sum now 0.97
	err := w.Validate()
	if err == nil {
		t.Fatal("expected validation error for weights summing to 0.97")
	}
	if !strings.Contains(err.Error(), "0.97") {
		t.Errorf("error should name the offending sum, got: %v", err)
	}
}

func TestValidateTolerance(t *testing.T) {
	w := DefaultWeights(ModeFull)
	w.Balance += 0.0005 // within ±0.001
	if err := w.Validate(); err != nil {
		t.Errorf("sum within tolerance rejected: %v", err)
	}
	w.Balance += 0.002 // outside
	if err := w.Validate(); err == nil {
		t.Error("sum outside tolerance accepted")
	}
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"full", "no-size", "no-transit", "minimal"} {
		if _, err := ParseMode(s); err != nil {
			t.Errorf("ParseMode(%q): %v", s, err)
		}
	}
	if _, err := ParseMode("fancy"); err == nil {
		t.Error("ParseMode accepted unknown mode")
	}
}
