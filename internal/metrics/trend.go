package metrics

// Direction is a derived trend direction
type Direction string

const (
	// Improving indicates the series is moving up (or incidents are down)
	Improving Direction = "improving"
	// Declining indicates a grade/attendance series is moving down
	Declining Direction = "declining"
	// Worsening indicates behavior incidents are increasing
	Worsening Direction = "worsening"
	// Stable indicates no significant movement
	Stable Direction = "stable"
)

// minTrendSamples is the minimum series length for any trend call; below it
// the trend is always stable
const minTrendSamples = 3

// GradeTrend compares early grades against late grades. For fewer than 6
// entries the series is split in half and a 3-point mean gap is significant;
// for 6 or more it is split in thirds and a 5-point gap is significant.
func GradeTrend(values []float64) Direction {
	if len(values) < minTrendSamples {
		return Stable
	}

	if len(values) < 6 {
		half := len(values) / 2
		return compareMeans(mean(values[:half]), mean(values[half:]), 3)
	}

	third := len(values) / 3
	return compareMeans(mean(values[:third]), mean(values[len(values)-third:]), 5)
}

// AttendanceTrend compares early monthly rates against late monthly rates
// using the same half-split rule as short grade series
func AttendanceTrend(monthlyRates []float64) Direction {
	if len(monthlyRates) < minTrendSamples {
		return Stable
	}
	half := len(monthlyRates) / 2
	return compareMeans(mean(monthlyRates[:half]), mean(monthlyRates[half:]), 3)
}

// BehaviorTrend compares incident counts in the most recent window against
// the prior window: more incidents is worsening, fewer is improving.
func BehaviorTrend(recentCount, priorCount int) Direction {
	switch {
	case recentCount > priorCount:
		return Worsening
	case recentCount < priorCount:
		return Improving
	default:
		return Stable
	}
}

func compareMeans(early, late, gap float64) Direction {
	switch {
	case late-early >= gap:
		return Improving
	case early-late >= gap:
		return Declining
	default:
		return Stable
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
