package models

import "testing"

func TestStatusTerminal(t *testing.T) {
	if StatusPending.Terminal() || StatusProcessing.Terminal() {
		t.Error("pending and processing must not be terminal")
	}
	for _, s := range []JobStatus{StatusCompleted, StatusError, StatusCancelled} {
		if !s.Terminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to JobStatus
		want     bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusCompleted, false},
		{StatusPending, StatusCancelled, false},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusError, true},
		{StatusProcessing, StatusCancelled, true},
		{StatusProcessing, StatusPending, false},
		// Regeneration restarts terminal jobs.
		{StatusCompleted, StatusProcessing, true},
		{StatusError, StatusProcessing, true},
		{StatusCancelled, StatusProcessing, true},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusCompleted, false},
	}

	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestUpdateApplyLeavesNilFieldsAlone(t *testing.T) {
	job := &VideoJob{Address: "12 Oak St", Price: "$500,000", SlideDuration: 5}

	newPrice := "$425,000"
	upd := VideoJobUpdate{Price: &newPrice}
	upd.Apply(job)

	if job.Price != "$425,000" {
		t.Errorf("expected price updated, got %q", job.Price)
	}
	if job.Address != "12 Oak St" || job.SlideDuration != 5 {
		t.Error("fields without an update value must not change")
	}
}
