// Package fraud computes the advisory fraud badge shown next to a claim.
// The value is a deterministic function of the claim id, not a model output.
package fraud

import (
	"math"
	"unicode/utf16"
)

// Threshold splits Score into the two badge values: scores below it are "not fraud".
const Threshold = 0.3

// Indicator is the badge for one claim.
type Indicator struct {
	Fraud bool
	// Flag is 1 for fraud and 0 otherwise.
	Flag       int
	Confidence int
}

func (i Indicator) Label() string {
	if i.Fraud {
		return "Fraud"
	}
	return "Not Fraud"
}

// hash runs h*31+c over the UTF-16 code units of s with 32-bit wrap-around,
// matching the value a browser client computes for the same id.
func hash(s string) int32 {
	var h int32
	for _, unit := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(unit)
	}
	return h
}

// Score maps s onto [0, 1).
func Score(s string) float64 {
	x := math.Abs(math.Sin(float64(hash(s)))) * 10000
	return x - math.Floor(x)
}

// Evaluate returns the badge for a claim id.
func Evaluate(id string) Indicator {
	r := Score(id)
	r2 := Score(id + "x")

	if r < Threshold {
		return Indicator{Confidence: int(math.Round(100 * (0.05 + 0.35*r2)))}
	}
	return Indicator{
		Fraud:      true,
		Flag:       1,
		Confidence: int(math.Round(100 * (0.6 + 0.35*r2))),
	}
}
