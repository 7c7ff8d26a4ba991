package track

import (
	"regexp"
	"strings"
)

var digitRun = regexp.MustCompile(`[0-9]+`)

// Ordinal returns the first contiguous digit run of a label with leading
// zeros removed. Labels without digits have ordinal "0".
func Ordinal(label string) string {
	run := digitRun.FindString(label)
	run = strings.TrimLeft(run, "0")
	if run == "" {
		return "0"
	}
	return run
}

// compareOrdinals compares two normalized digit runs numerically without
// converting them, so arbitrarily long runs cannot overflow.
func compareOrdinals(a, b string) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// compareLabels orders labels by ordinal only. Equal ordinals compare as
// equal so a stable sort keeps discovery order.
func compareLabels(a, b string) int {
	return compareOrdinals(Ordinal(a), Ordinal(b))
}
