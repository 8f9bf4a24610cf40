package scoring

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		total, max float64
		want       Grade
	}{
		{100, 100, GradeA},
		{90, 100, GradeA},
		{89.9, 100, GradeB},
		{80, 100, GradeB},
		{79.99, 100, GradeC},
		{70, 100, GradeC},
		{60, 100, GradeD},
		{59.9, 100, GradeF},
		{0, 100, GradeF},
		{0, 0, GradeF},
		{5, 0, GradeF},
		{9, 10, GradeA},
		{7, 10, GradeC},
		{120, 100, GradeA},
	}

	for _, tt := range tests {
		if got := Classify(tt.total, tt.max); got != tt.want {
			t.Errorf("Classify(%v, %v) = %s, want %s", tt.total, tt.max, got, tt.want)
		}
	}
}

func TestClassifyMonotonic(t *testing.T) {
	rank := map[Grade]int{GradeF: 0, GradeD: 1, GradeC: 2, GradeB: 3, GradeA: 4}
	prev := GradeF
	for pct := 0.0; pct <= 100; pct += 0.1 {
		g := Classify(pct, 100)
		if _, ok := rank[g]; !ok {
			t.Fatalf("Classify(%v, 100) returned unknown grade %q", pct, g)
		}
		if rank[g] < rank[prev] {
			t.Fatalf("grade dropped from %s to %s at %v%%", prev, g, pct)
		}
		prev = g
	}
}

func TestPercentage(t *testing.T) {
	if got := Percentage(3, 4); got != 75 {
		t.Errorf("Percentage(3, 4) = %v, want 75", got)
	}
	if got := Percentage(3, 0); got != 0 {
		t.Errorf("Percentage(3, 0) = %v, want 0", got)
	}
}
