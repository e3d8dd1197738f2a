package liveness

import "math"

// LabelUnknown is the label a Comparator gives a candidate that matches no
// enrolled identity.
const LabelUnknown = "unknown"

// LabelEnrolled is the label for a candidate within the comparator's own
// acceptance distance.
const LabelEnrolled = "enrolled"

// Match is the best comparator result for one candidate.
type Match struct {
	Label    string
	Distance float64
}

// Comparator scores a candidate descriptor against the enrolled one.
type Comparator interface {
	BestMatch(candidate, enrolled Descriptor) Match
}

// EuclideanComparator labels a candidate as enrolled when its Euclidean distance
// to the reference is within Threshold (0.6 when unset), and unknown
// otherwise. Descriptors of different length never match.
type EuclideanComparator struct {
	Threshold float64
}

func (c EuclideanComparator) BestMatch(candidate, enrolled Descriptor) Match {
	threshold := c.Threshold
	if threshold <= 0 {
		threshold = 0.6
	}
	d := Distance(candidate, enrolled)
	if d > threshold {
		return Match{Label: LabelUnknown, Distance: d}
	}
	return Match{Label: LabelEnrolled, Distance: d}
}

// Distance is the Euclidean distance between two descriptors, or +Inf when
// their lengths differ or either is empty.
func Distance(a, b Descriptor) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return math.Sqrt(sum)
}
