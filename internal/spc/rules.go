package spc

import (
	"math"

	"qcpulse/pkg/contracts/domain"
)

// RuleCount is the number of Nelson rules the engine evaluates.
const RuleCount = 8

// Minimum window sizes per rule, inclusive of the current point. A rule can
// only flag an index once that much history exists; earlier indices are never
// flagged by it.
var ruleWindows = [RuleCount + 1]int{
	0,
	1:  1,
	2:  9,
	3:  6,
	4:  14,
	5:  3,
	6:  5,
	7:  15,
	8:  8,
}

// Evaluate classifies every point of one channel against the eight Nelson
// rules and returns one ViolationSet per input value, in input order.
//
// Every rule scans the running window ending at the point under test - there
// is no lookahead - and all eight are evaluated independently for every index
// with no short-circuiting, so evaluation order never affects the result.
// Comparisons against a zero or NaN stdDev follow plain IEEE semantics (any
// comparison with NaN is false); the engine deliberately does not special-case
// them.
func Evaluate(values []float64, mean, stdDev float64) []domain.ViolationSet {
	out := make([]domain.ViolationSet, len(values))
	for i := range values {
		set := domain.ViolationSet{}
		if beyond3Sigma(values, i, mean, stdDev) {
			set = append(set, 1)
		}
		if nineOneSide(values, i, mean) {
			set = append(set, 2)
		}
		if sixTrending(values, i) {
			set = append(set, 3)
		}
		if fourteenAlternating(values, i) {
			set = append(set, 4)
		}
		if twoOfThreeBeyond2Sigma(values, i, mean, stdDev) {
			set = append(set, 5)
		}
		if fourOfFiveBeyond1Sigma(values, i, mean, stdDev) {
			set = append(set, 6)
		}
		if fifteenWithin1Sigma(values, i, mean, stdDev) {
			set = append(set, 7)
		}
		if eightBeyond1Sigma(values, i, mean, stdDev) {
			set = append(set, 8)
		}
		out[i] = set
	}
	return out
}

// Rule 1: the point lies more than three standard deviations from the mean.
func beyond3Sigma(values []float64, i int, mean, stdDev float64) bool {
	return math.Abs(values[i]-mean) > 3*stdDev
}

// Rule 2: nine points in a row strictly on the same side of the mean.
func nineOneSide(values []float64, i int, mean float64) bool {
	if i < ruleWindows[2]-1 {
		return false
	}
	above, below := true, true
	for j := i - 8; j <= i; j++ {
		if values[j] <= mean {
			above = false
		}
		if values[j] >= mean {
			below = false
		}
	}
	return above || below
}

// Rule 3: six points in a row strictly increasing or strictly decreasing.
func sixTrending(values []float64, i int) bool {
	if i < ruleWindows[3]-1 {
		return false
	}
	inc, dec := true, true
	for j := i - 4; j <= i; j++ {
		if values[j] <= values[j-1] {
			inc = false
		}
		if values[j] >= values[j-1] {
			dec = false
		}
	}
	return inc || dec
}

// Rule 4: fourteen points in a row alternating direction at every step. Equal
// consecutive values break the alternation.
func fourteenAlternating(values []float64, i int) bool {
	if i < ruleWindows[4]-1 {
		return false
	}
	for j := i - 11; j <= i; j++ {
		prev := values[j-1] - values[j-2]
		cur := values[j] - values[j-1]
		// Opposite strict signs; a zero difference fails both products.
		if !(cur*prev < 0) {
			return false
		}
	}
	return true
}

// Rule 5: at least two of the last three points more than two standard
// deviations from the mean.
func twoOfThreeBeyond2Sigma(values []float64, i int, mean, stdDev float64) bool {
	if i < ruleWindows[5]-1 {
		return false
	}
	n := 0
	for j := i - 2; j <= i; j++ {
		if math.Abs(values[j]-mean) > 2*stdDev {
			n++
		}
	}
	return n >= 2
}

// Rule 6: at least four of the last five points more than one standard
// deviation from the mean.
func fourOfFiveBeyond1Sigma(values []float64, i int, mean, stdDev float64) bool {
	if i < ruleWindows[6]-1 {
		return false
	}
	n := 0
	for j := i - 4; j <= i; j++ {
		if math.Abs(values[j]-mean) > stdDev {
			n++
		}
	}
	return n >= 4
}

// Rule 7: fifteen points in a row within one standard deviation of the mean.
func fifteenWithin1Sigma(values []float64, i int, mean, stdDev float64) bool {
	if i < ruleWindows[7]-1 {
		return false
	}
	for j := i - 14; j <= i; j++ {
		if !(math.Abs(values[j]-mean) < stdDev) {
			return false
		}
	}
	return true
}

// Rule 8: eight points in a row more than one standard deviation from the
// mean.
func eightBeyond1Sigma(values []float64, i int, mean, stdDev float64) bool {
	if i < ruleWindows[8]-1 {
		return false
	}
	for j := i - 7; j <= i; j++ {
		if !(math.Abs(values[j]-mean) > stdDev) {
			return false
		}
	}
	return true
}
