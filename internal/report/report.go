// Package report reduces stored corrections to dashboard statistics.
package report

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pavelanni/examdesk/internal/model"
	"github.com/pavelanni/examdesk/internal/scoring"
)

// DefaultTrendWindow is the moving average window used when none is set.
const DefaultTrendWindow = 3

// Options tunes the dashboard.
type Options struct {
	// TopStudents limits the per-student list. Zero keeps everyone.
	TopStudents int
	// TrendWindow is the moving average window in days.
	TrendWindow int
}

// DayPoint is the score percentage for one calendar day (UTC).
type DayPoint struct {
	Day           string `json:"day"`
	Percent       int    `json:"pct"`
	MovingAverage int    `json:"movingAvg"`
	Count         int    `json:"count"`
}

// GroupAverage is a ratio-of-sums percentage for a group of corrections.
type GroupAverage struct {
	Name    string  `json:"name"`
	Percent int     `json:"pct"`
	Count   int     `json:"count"`
	Total   float64 `json:"totalScore"`
	Max     float64 `json:"maxScore"`
}

// Dashboard is the aggregate view over a set of corrections.
type Dashboard struct {
	Total          int                            `json:"total"`
	AveragePercent int                            `json:"avgPct"`
	Grades         map[scoring.Grade]int          `json:"gradeCounts"`
	Methods        map[model.CorrectionMethod]int `json:"methodCounts"`
	Trend          []DayPoint                     `json:"trend"`
	Exams          []GroupAverage                 `json:"exams"`
	Students       []GroupAverage                 `json:"students"`
}

type bucket struct {
	sum, max float64
	count    int
}

func (b *bucket) add(c model.Correction) {
	b.sum += c.TotalScore
	b.max += c.MaxScore
	b.count++
}

func (b bucket) percent() int {
	if b.max <= 0 {
		return 0
	}
	return roundPercent(b.sum / b.max * 100)
}

// Build computes the dashboard. It never mutates its input.
func Build(corrections []model.Correction, opts Options) Dashboard {
	d := Dashboard{
		Total:  len(corrections),
		Grades: make(map[scoring.Grade]int, len(scoring.AllGrades)),
		Methods: map[model.CorrectionMethod]int{
			model.MethodAutomatic: 0,
			model.MethodManual:    0,
		},
	}
	for _, g := range scoring.AllGrades {
		d.Grades[g] = 0
	}

	byDay := make(map[string]*bucket)
	byExam := make(map[string]*bucket)
	byStudent := make(map[string]*bucket)
	var (
		ratioSum float64
		ratioN   int
	)

	for _, c := range corrections {
		d.Grades[scoring.Classify(c.TotalScore, c.MaxScore)]++
		d.Methods[c.CorrectionMethod]++

		group(byDay, c.CorrectedAt.UTC().Format(time.DateOnly)).add(c)
		if title := strings.TrimSpace(c.ExamTitle); title != "" {
			group(byExam, title).add(c)
		}
		if name := strings.TrimSpace(c.StudentName); name != "" {
			group(byStudent, name).add(c)
		}

		if c.MaxScore > 0 && !math.IsNaN(c.TotalScore) {
			ratioSum += c.TotalScore / c.MaxScore
			ratioN++
		}
	}

	if ratioN > 0 {
		d.AveragePercent = roundPercent(ratioSum / float64(ratioN) * 100)
	}
	d.Trend = trend(byDay, opts.TrendWindow)

	d.Exams = averages(byExam)
	sort.Slice(d.Exams, func(i, j int) bool { return d.Exams[i].Name < d.Exams[j].Name })

	d.Students = averages(byStudent)
	sort.SliceStable(d.Students, func(i, j int) bool {
		a, b := d.Students[i], d.Students[j]
		pa, pb := a.Total/nonZero(a.Max), b.Total/nonZero(b.Max)
		if pa != pb {
			return pa > pb
		}
		return a.Name < b.Name
	})
	if opts.TopStudents > 0 && len(d.Students) > opts.TopStudents {
		d.Students = d.Students[:opts.TopStudents]
	}
	return d
}

func group(m map[string]*bucket, key string) *bucket {
	b, ok := m[key]
	if !ok {
		b = &bucket{}
		m[key] = b
	}
	return b
}

func trend(byDay map[string]*bucket, window int) []DayPoint {
	if window <= 0 {
		window = DefaultTrendWindow
	}
	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	points := make([]DayPoint, len(days))
	for i, day := range days {
		b := byDay[day]
		points[i] = DayPoint{Day: day, Percent: b.percent(), Count: b.count}

		start := max(0, i-window+1)
		sum := 0
		for _, p := range points[start : i+1] {
			sum += p.Percent
		}
		points[i].MovingAverage = roundPercent(float64(sum) / float64(i+1-start))
	}
	return points
}

func averages(m map[string]*bucket) []GroupAverage {
	out := make([]GroupAverage, 0, len(m))
	for name, b := range m {
		out = append(out, GroupAverage{Name: name, Percent: b.percent(), Count: b.count, Total: b.sum, Max: b.max})
	}
	return out
}

func nonZero(v float64) float64 {
	if v <= 0 {
		return math.Inf(1)
	}
	return v
}

// roundPercent rounds halves toward positive infinity, so -2.5 becomes -2.
func roundPercent(x float64) int {
	return int(math.Floor(x + 0.5))
}
