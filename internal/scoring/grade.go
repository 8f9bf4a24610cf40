package scoring

import "math"

// Grade is a letter bucket derived from a score percentage.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// AllGrades lists grades from best to worst.
var AllGrades = []Grade{GradeA, GradeB, GradeC, GradeD, GradeF}

// Percentage returns total/max*100, or 0 when max is not positive.
func Percentage(total, max float64) float64 {
	if max <= 0 || math.IsNaN(total) || math.IsNaN(max) {
		return 0
	}
	return total * 100 / max
}

// Classify maps a score to a letter grade. A non-positive max yields F.
func Classify(total, max float64) Grade {
	if max <= 0 || math.IsNaN(total) || math.IsNaN(max) {
		return GradeF
	}
	switch pct := total * 100 / max; {
	case pct >= 90:
		return GradeA
	case pct >= 80:
		return GradeB
	case pct >= 70:
		return GradeC
	case pct >= 60:
		return GradeD
	default:
		return GradeF
	}
}
