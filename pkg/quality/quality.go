// Package quality defines the JPEG quality range accepted by the
// streaming server. A quality level is the sharding key for demand
// tracking, the frame cache, and broadcast fan-out.
package quality

const (
	// Min and Max bound the accepted quality range, inclusive.
	Min = 30
	Max = 95
)

// Valid reports whether q is an accepted quality level.
func Valid(q int) bool {
	return q >= Min && q <= Max
}

// Levels returns the number of distinct quality levels.
func Levels() int {
	return Max - Min + 1
}
