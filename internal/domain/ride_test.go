package domain

import "testing"

func TestRideStatus_CanTransitionTo(t *testing.T) {
	all := []RideStatus{RideStatusRequested, RideStatusAccepted, RideStatusCompleted, RideStatusCancelled}
	allowed := map[[2]RideStatus]bool{
		{RideStatusRequested, RideStatusAccepted}:  true,
		{RideStatusRequested, RideStatusCancelled}: true,
		{RideStatusAccepted, RideStatusCompleted}:  true,
		{RideStatusAccepted, RideStatusCancelled}:  true,
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]RideStatus{from, to}]
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s: expected %v, got %v", from, to, want, got)
			}
		}
	}
}

func TestRideStatus_IsTerminal(t *testing.T) {
	if RideStatusRequested.IsTerminal() || RideStatusAccepted.IsTerminal() {
		t.Error("open statuses reported terminal")
	}
	if !RideStatusCompleted.IsTerminal() || !RideStatusCancelled.IsTerminal() {
		t.Error("closed statuses not reported terminal")
	}
}

func TestParseRideStatus(t *testing.T) {
	if s, ok := ParseRideStatus("Accepted"); !ok || s != RideStatusAccepted {
		t.Errorf("expected Accepted, got %q %v", s, ok)
	}
	if _, ok := ParseRideStatus("accepted"); ok {
		t.Error("status names are case sensitive")
	}
}

func TestRideStatus_RankFollowsTransitions(t *testing.T) {
	all := []RideStatus{RideStatusRequested, RideStatusAccepted, RideStatusCompleted, RideStatusCancelled}
	for _, from := range all {
		for _, to := range all {
			if from.CanTransitionTo(to) && to.Rank() <= from.Rank() {
				t.Errorf("%s -> %s does not raise rank (%d -> %d)", from, to, from.Rank(), to.Rank())
			}
		}
	}
	if RideStatus("Teleported").Rank() >= 0 {
		t.Error("unknown status should rank below Requested")
	}
}
