package report

import (
	"reflect"
	"testing"
	"time"

	"github.com/pavelanni/examdesk/internal/model"
	"github.com/pavelanni/examdesk/internal/scoring"
)

func corr(total, max float64, day string, method model.CorrectionMethod, exam, student string) model.Correction {
	at, err := time.Parse(time.DateOnly, day)
	if err != nil {
		panic(err)
	}
	return model.Correction{
		TotalScore:       total,
		MaxScore:         max,
		CorrectedAt:      at.Add(12 * time.Hour),
		CorrectionMethod: method,
		ExamTitle:        exam,
		StudentName:      student,
	}
}

func TestDailyTrendRatioOfSums(t *testing.T) {
	cs := []model.Correction{
		corr(80, 100, "2024-01-02", model.MethodAutomatic, "Go", "Bia"),
		corr(90, 100, "2024-01-01", model.MethodAutomatic, "Go", "Ana"),
		corr(50, 100, "2024-01-01", model.MethodManual, "Go", "Caio"),
	}

	d := Build(cs, Options{})

	want := []DayPoint{
		{Day: "2024-01-01", Percent: 70, MovingAverage: 70, Count: 2},
		{Day: "2024-01-02", Percent: 80, MovingAverage: 75, Count: 1},
	}
	if !reflect.DeepEqual(d.Trend, want) {
		t.Errorf("trend = %+v, want %+v", d.Trend, want)
	}
}

func TestTrendUsesUTCDay(t *testing.T) {
	// 23:30 in UTC-3 on Jan 1 is Jan 2 in UTC.
	c := model.Correction{
		TotalScore:  1,
		MaxScore:    2,
		CorrectedAt: time.Date(2024, 1, 1, 23, 30, 0, 0, time.FixedZone("BRT", -3*60*60)),
	}
	d := Build([]model.Correction{c}, Options{})
	if len(d.Trend) != 1 || d.Trend[0].Day != "2024-01-02" {
		t.Errorf("trend = %+v, want a single 2024-01-02 point", d.Trend)
	}
}

func TestMovingAverageWindow(t *testing.T) {
	cs := []model.Correction{
		corr(10, 100, "2024-02-01", model.MethodAutomatic, "", ""),
		corr(20, 100, "2024-02-02", model.MethodAutomatic, "", ""),
		corr(30, 100, "2024-02-03", model.MethodAutomatic, "", ""),
		corr(90, 100, "2024-02-04", model.MethodAutomatic, "", ""),
		corr(0, 0, "2024-02-05", model.MethodAutomatic, "", ""),
	}
	d := Build(cs, Options{})

	var got []int
	for _, p := range d.Trend {
		got = append(got, p.MovingAverage)
	}
	want := []int{10, 15, 20, 47, 40}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("moving average = %v, want %v", got, want)
	}
	if d.Trend[4].Percent != 0 {
		t.Errorf("day with zero max should report 0, got %d", d.Trend[4].Percent)
	}
}

func TestDistributions(t *testing.T) {
	cs := []model.Correction{
		corr(95, 100, "2024-01-01", model.MethodAutomatic, "Go", "Ana"),
		corr(85, 100, "2024-01-01", model.MethodAutomatic, "Go", "Ana"),
		corr(10, 100, "2024-01-01", model.MethodManual, "Go", "Ana"),
		corr(0, 0, "2024-01-01", model.MethodManual, "Go", "Ana"),
	}
	d := Build(cs, Options{})

	wantGrades := map[scoring.Grade]int{scoring.GradeA: 1, scoring.GradeB: 1, scoring.GradeC: 0, scoring.GradeD: 0, scoring.GradeF: 2}
	if !reflect.DeepEqual(d.Grades, wantGrades) {
		t.Errorf("grades = %v, want %v", d.Grades, wantGrades)
	}
	wantMethods := map[model.CorrectionMethod]int{model.MethodAutomatic: 2, model.MethodManual: 2}
	if !reflect.DeepEqual(d.Methods, wantMethods) {
		t.Errorf("methods = %v, want %v", d.Methods, wantMethods)
	}
	if d.Total != 4 {
		t.Errorf("total = %d, want 4", d.Total)
	}
}

func TestOverallAverageIsMeanOfRatios(t *testing.T) {
	cs := []model.Correction{
		corr(1, 1, "2024-01-01", model.MethodAutomatic, "A", "x"),
		corr(0, 9, "2024-01-01", model.MethodAutomatic, "A", "y"),
		corr(5, 0, "2024-01-01", model.MethodAutomatic, "A", "z"),
	}
	d := Build(cs, Options{})

	// Mean of 100% and 0%; the zero-max correction is ignored.
	if d.AveragePercent != 50 {
		t.Errorf("average = %d, want 50", d.AveragePercent)
	}
	// Ratio of sums over the exam: 6/10.
	if len(d.Exams) != 1 || d.Exams[0].Percent != 60 {
		t.Errorf("exams = %+v, want a single 60%% entry", d.Exams)
	}
}

func TestGroupsTrimAndSkipBlank(t *testing.T) {
	cs := []model.Correction{
		corr(9, 10, "2024-01-01", model.MethodAutomatic, " Go ", " Ana "),
		corr(7, 10, "2024-01-01", model.MethodAutomatic, "Go", "Ana"),
		corr(5, 10, "2024-01-01", model.MethodAutomatic, "   ", "Bia"),
		corr(10, 10, "2024-01-01", model.MethodAutomatic, "Rust", "  "),
		corr(6, 10, "2024-01-01", model.MethodAutomatic, "Rust", "Caio"),
	}
	d := Build(cs, Options{})

	wantExams := []GroupAverage{
		{Name: "Go", Percent: 80, Count: 2, Total: 16, Max: 20},
		{Name: "Rust", Percent: 80, Count: 2, Total: 16, Max: 20},
	}
	if !reflect.DeepEqual(d.Exams, wantExams) {
		t.Errorf("exams = %+v, want %+v", d.Exams, wantExams)
	}

	var names []string
	for _, s := range d.Students {
		names = append(names, s.Name)
	}
	wantNames := []string{"Ana", "Caio", "Bia"}
	if !reflect.DeepEqual(names, wantNames) {
		t.Errorf("students = %v, want %v", names, wantNames)
	}
}

func TestTopStudents(t *testing.T) {
	cs := []model.Correction{
		corr(1, 10, "2024-01-01", model.MethodAutomatic, "Go", "Ana"),
		corr(9, 10, "2024-01-01", model.MethodAutomatic, "Go", "Bia"),
		corr(5, 10, "2024-01-01", model.MethodAutomatic, "Go", "Caio"),
	}
	d := Build(cs, Options{TopStudents: 2})
	if len(d.Students) != 2 || d.Students[0].Name != "Bia" || d.Students[1].Name != "Caio" {
		t.Errorf("students = %+v", d.Students)
	}
}

func TestEmpty(t *testing.T) {
	d := Build(nil, Options{})
	if d.Total != 0 || d.AveragePercent != 0 || len(d.Trend) != 0 {
		t.Errorf("unexpected dashboard for no corrections: %+v", d)
	}
	if len(d.Grades) != len(scoring.AllGrades) {
		t.Errorf("expected every grade present, got %v", d.Grades)
	}
}

func TestRoundsHalvesUp(t *testing.T) {
	tests := []struct {
		name  string
		total float64
		want  int
	}{
		{"positive half", 5, 3},
		{"negative half", -5, -2},
		{"below half", 4, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Build([]model.Correction{corr(tt.total, 200, "2024-01-01", model.MethodManual, "Go", "Ana")}, Options{})
			if d.AveragePercent != tt.want {
				t.Errorf("average = %d, want %d", d.AveragePercent, tt.want)
			}
			if len(d.Trend) != 1 || d.Trend[0].Percent != tt.want || d.Trend[0].MovingAverage != tt.want {
				t.Errorf("trend = %+v, want pct %d", d.Trend, tt.want)
			}
		})
	}
}
