package progress

import "testing"

func TestSnapshotPercent_Clamping(t *testing.T) {
	tests := []struct {
		name    string
		current int
		total   int
		want    int
	}{
		{"zero total is indeterminate", 5, 0, 0},
		{"zero of ten", 0, 10, 0},
		{"three of ten", 3, 10, 30},
		{"rounding up", 1, 3, 33},
		{"two thirds", 2, 3, 67},
		{"complete", 10, 10, 100},
		{"current past total clamps", 15, 10, 100},
		{"negative current clamps", -3, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Snapshot{Current: tt.current, Total: tt.total}
			if got := s.Percent(); got != tt.want {
				t.Errorf("Percent(%d/%d) = %d, want %d", tt.current, tt.total, got, tt.want)
			}
		})
	}
}

func TestSnapshotPercent_AlwaysInRange(t *testing.T) {
	for current := -5; current <= 25; current++ {
		for total := 1; total <= 12; total++ {
			s := &Snapshot{Current: current, Total: total}
			if pct := s.Percent(); pct < 0 || pct > 100 {
				t.Fatalf("Percent(%d/%d) = %d out of [0,100]", current, total, pct)
			}
		}
	}
}

func TestSnapshotIsEmpty(t *testing.T) {
	if !(&Snapshot{}).IsEmpty() {
		t.Error("zero snapshot should be empty")
	}
	var nilSnap *Snapshot
	if !nilSnap.IsEmpty() {
		t.Error("nil snapshot should be empty")
	}
	if (&Snapshot{Status: StatusPending}).IsEmpty() {
		t.Error("snapshot with status should not be empty")
	}
	if (&Snapshot{Message: "working"}).IsEmpty() {
		t.Error("snapshot with message should not be empty")
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusSuccess, StatusError} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusInProgress, StatusFetchingCourse, Status("made_up_phase")} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
	if StatusError.Succeeded() {
		t.Error("error must not count as success")
	}
}
