// Package spc implements the statistical process control engine: per-channel
// descriptive statistics and the eight Nelson control-chart rules.
//
// Both entry points are pure functions over a snapshot of the series. They
// keep no state between calls, so repeated evaluation of the same input is
// bit-identical and concurrent evaluation needs no coordination. Re-deriving
// everything from the raw series on each call is cheap at QC-lab scale and
// cannot drift from the source of truth.
//
// Numerically odd input (NaN, zero standard deviation, negative readings) is
// processed as ordinary floats under IEEE semantics and never rejected.
package spc
