package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// Channel identifies one measured quantity of a sample. The two channels are
// evaluated independently by the SPC engine.
type Channel string

const (
	ChannelWeight   Channel = "weight"
	ChannelHardness Channel = "hardness"
)

// Channels lists every known channel in display order.
var Channels = []Channel{ChannelWeight, ChannelHardness}

// ParseChannel converts a string into a Channel, rejecting unknown names.
func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case ChannelWeight, ChannelHardness:
		return Channel(s), nil
	}
	return "", fmt.Errorf("unknown channel %q", s)
}

// Sample is one quality-control measurement: a pair of weight and hardness
// readings. A sample has no lifecycle of its own; it exists only as an element
// of a Series. IDs are display metadata and are not required to be unique,
// contiguous, or sorted - source workbooks can and do contain duplicates and
// gaps, and every consumer must tolerate that.
type Sample struct {
	ID       int     `json:"id"`
	Weight   float64 `json:"weight"`
	Hardness float64 `json:"hardness"`
}

// Series is an ordered sequence of samples. Insertion order is semantic order:
// it is the X-axis of every chart and the sequence the control-chart rules
// scan over.
type Series []Sample

// Clone returns an independent copy of the series. Hand-offs between the
// coordinator and its consumers always go through Clone so that no two
// components ever share a mutable backing array.
func (s Series) Clone() Series {
	if s == nil {
		return nil
	}
	out := make(Series, len(s))
	copy(out, s)
	return out
}

// Values extracts the readings of one channel, in series order.
func (s Series) Values(ch Channel) []float64 {
	out := make([]float64, len(s))
	for i, smp := range s {
		if ch == ChannelHardness {
			out[i] = smp.Hardness
		} else {
			out[i] = smp.Weight
		}
	}
	return out
}

// ChannelStats holds the derived statistics of one channel. It is recomputed
// from a series snapshot on every evaluation and never stored. StdDev is the
// population standard deviation (divide by N, not N-1). RSDPercent is
// 100*StdDev/Mean and is NaN when the mean is zero or the series is empty;
// NaN propagates to callers rather than being treated as an error.
type ChannelStats struct {
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"std_dev"`
	RSDPercent float64 `json:"rsd_percent"`
}

// MarshalJSON encodes NaN statistics as null. NaN is a legal in-process value
// (empty series, zero mean) but has no JSON representation.
func (c ChannelStats) MarshalJSON() ([]byte, error) {
	nanSafe := func(v float64) interface{} {
		if math.IsNaN(v) {
			return nil
		}
		return v
	}
	return json.Marshal(struct {
		Mean       interface{} `json:"mean"`
		StdDev     interface{} `json:"std_dev"`
		RSDPercent interface{} `json:"rsd_percent"`
	}{nanSafe(c.Mean), nanSafe(c.StdDev), nanSafe(c.RSDPercent)})
}

// ViolationSet is the set of control-chart rule numbers (1..8) that matched
// one point of one channel, in ascending order. Rules are independent, so a
// point can carry several of them at once. An empty set marshals as [] so
// chart renderers can index it without nil checks.
type ViolationSet []int

// Contains reports whether rule is part of the set.
func (v ViolationSet) Contains(rule int) bool {
	for _, r := range v {
		if r == rule {
			return true
		}
	}
	return false
}

// AnnotatedPoint is one sample of one channel together with the rule
// violations detected at its position.
type AnnotatedPoint struct {
	ID         int          `json:"id"`
	Value      float64      `json:"value"`
	Violations ViolationSet `json:"violations"`
}

// AnnotatedSeries is the projection a presentation layer renders from: one
// channel of the series with per-point violations plus the statistics that
// were used to derive them. It is rebuilt from scratch on every request and
// never persisted.
type AnnotatedSeries struct {
	Channel Channel          `json:"channel"`
	Stats   ChannelStats     `json:"stats"`
	Points  []AnnotatedPoint `json:"points"`
}
