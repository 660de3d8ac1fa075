package level

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/japaniel/jplevel/pkg/wanikani"
)

// UnknownLevel is assigned to items missing from the reference data. It is
// above every real level so unknown items always dominate the profile.
const UnknownLevel = wanikani.MaxLevel + 1

// Percentiles reported in a Profile besides the exact maximum.
var Percentiles = []int{80, 90, 95}

// MaxLabel is the Profile key holding the highest level seen.
const MaxLabel = "100%"

// Profile maps a percentile label ("80%", "90%", "95%", "100%") to the level
// needed to recognise that share of the matched items. A Profile with no
// entries means nothing was matched.
type Profile map[string]int

// Empty reports whether the profile has no entries.
func (p Profile) Empty() bool { return len(p) == 0 }

// Get returns the level stored under label, if any.
func (p Profile) Get(label string) (int, bool) {
	v, ok := p[label]
	return v, ok
}

// Labels returns the profile keys ordered by their numeric percentage.
func (p Profile) Labels() []string {
	labels := make([]string, 0, len(p))
	for k := range p {
		labels = append(labels, k)
	}
	sort.Slice(labels, func(i, j int) bool {
		return labelValue(labels[i]) < labelValue(labels[j])
	})
	return labels
}

func labelValue(label string) int {
	n, err := strconv.Atoi(strings.TrimSuffix(label, "%"))
	if err != nil {
		return math.MaxInt
	}
	return n
}

// Label formats a percentage as a Profile key.
func Label(pct int) string { return strconv.Itoa(pct) + "%" }

// Aggregate turns a list of per-item levels into a Profile. The 80/90/95
// entries are linearly interpolated percentiles truncated to an integer; the
// 100% entry is the exact maximum. An empty input gives an empty Profile.
func Aggregate(levels []int) Profile {
	if len(levels) == 0 {
		return Profile{}
	}
	sorted := make([]int, len(levels))
	copy(sorted, levels)
	sort.Ints(sorted)

	p := make(Profile, len(Percentiles)+1)
	for _, pct := range Percentiles {
		p[Label(pct)] = int(Percentile(sorted, float64(pct)))
	}
	p[MaxLabel] = sorted[len(sorted)-1]
	return p
}

// Percentile computes the p-th percentile (0..100) of an ascending sample
// using linear interpolation between the two closest ranks. It returns 0 for
// an empty sample.
func Percentile(sorted []int, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return float64(sorted[0])
	}
	if p >= 100 {
		return float64(sorted[n-1])
	}
	idx := float64(n-1) * (p / 100)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return float64(sorted[lo])
	}
	a, b := float64(sorted[lo]), float64(sorted[hi])
	t := idx - float64(lo)
	// Interpolate from whichever end is closer so the result is exact at both brackets.
	if t >= 0.5 {
		return b - (b-a)*(1-t)
	}
	return a + (b-a)*t
}
