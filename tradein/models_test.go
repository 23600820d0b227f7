package tradein

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCompleted, StatusPending, false},
		{StatusCancelled, StatusCompleted, false},
		{StatusCancelled, StatusPending, false},
		{StatusPending, Status("shipped"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusCompleted, StatusCancelled} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if Status("lost").Valid() {
		t.Error("unknown status should be invalid")
	}
}

func TestCloneCopiesTimes(t *testing.T) {
	now := time.Now()
	tr := &TradeIn{PickupDate: &now, CompletedAt: &now}
	c := tr.Clone()
	later := now.Add(time.Hour)
	*c.PickupDate = later
	*c.CompletedAt = later
	if !tr.PickupDate.Equal(now) || !tr.CompletedAt.Equal(now) {
		t.Error("clone shares time pointers with original")
	}
}
