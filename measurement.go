package corovm

import "math"

// measurement packs a scheduler's enqueued and scheduled counts into one
// machine word, half-width each and saturating, so the threadpool's
// least-loaded probe can compare two workers' load with a single integer
// comparison. This representation is preserved deliberately: it is the
// one piece of the original the spec calls out as observable and relied
// upon by the threadpool's inner loop, not an implementation detail to
// simplify away.
type measurement uint64

const measurementHalfBits = 32

func packMeasurement(enqueued, scheduled int) measurement {
	return measurement(saturateU32(enqueued))<<measurementHalfBits | measurement(saturateU32(scheduled))
}

func saturateU32(n int) uint32 {
	if n < 0 {
		return 0
	}
	if n > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(n)
}

func (m measurement) enqueued() int {
	return int(uint32(m >> measurementHalfBits))
}

func (m measurement) scheduled() int {
	return int(uint32(m))
}

func (m measurement) blocked() int {
	return m.scheduled() - m.enqueued()
}

// Less defines the total order induced by the packed word: enqueued
// count first, scheduled count as tiebreaker. Unlike the source this is
// not implemented, this does not special-case either comparison
// direction — it is the plain order a uint64 compare already gives,
// which is what spec.md's open question about the source's asymmetric
// <=/>= operators asks a reimplementation to settle on.
func (m measurement) Less(other measurement) bool {
	return m < other
}

func (m measurement) Equal(other measurement) bool {
	return m == other
}
