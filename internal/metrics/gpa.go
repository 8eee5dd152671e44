// Package metrics derives GPA conversions, trend directions, and composite
// risk levels from aggregated student data. Everything here is a pure
// function over already-fetched in-memory values; no I/O occurs.
package metrics

// gpaBand is one step of the fixed, monotonic conversion function over the
// 0-100 average. Percentile and GPA conversions use fixed lookup bands, not
// cohort-normalized statistics.
type gpaBand struct {
	min    float64
	gpa    float64
	letter string
}

var gpaBands = []gpaBand{
	{97, 4.0, "A+"},
	{93, 3.7, "A"},
	{90, 3.3, "A-"},
	{87, 3.0, "B+"},
	{83, 2.7, "B"},
	{80, 2.3, "B-"},
	{77, 2.0, "C+"},
	{73, 1.7, "C"},
	{70, 1.3, "C-"},
	{67, 1.0, "D+"},
	{65, 0.7, "D"},
}

// GPAFromAverage converts a 0-100 grade average to the 4.0 scale and its
// letter grade
func GPAFromAverage(average float64) (float64, string) {
	for _, band := range gpaBands {
		if average >= band.min {
			return band.gpa, band.letter
		}
	}
	return 0.0, "F"
}
