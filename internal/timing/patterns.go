package timing

import "time"

// defaultPeakHours is used when there is no completion history yet:
// late morning, early and mid afternoon, early evening.
var defaultPeakHours = []int{10, 14, 19}

// CompletionPeaks buckets completion timestamps by hour of day and returns
// the hours whose count is at least the mean count across all hours that
// saw at least one completion.
func CompletionPeaks(history []time.Time) []int {
	if len(history) == 0 {
		return append([]int(nil), defaultPeakHours...)
	}

	var counts [24]int
	for _, t := range history {
		counts[t.Hour()]++
	}

	active := 0
	total := 0
	for _, c := range counts {
		if c > 0 {
			active++
			total += c
		}
	}
	mean := float64(total) / float64(active)

	var peaks []int
	for h, c := range counts {
		if c > 0 && float64(c) >= mean {
			peaks = append(peaks, h)
		}
	}
	return peaks
}
