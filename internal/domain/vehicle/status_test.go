package vehicle

import "testing"

func TestParseStatus(t *testing.T) {
	cases := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"IDLE", StatusIdle, false},
		{"link_issued", StatusLinkIssued, false},
		{"  requested ", StatusRequested, false},
		{"Delivered", StatusDelivered, false},
		{"", "", true},
		{"PARKED", "", true},
	}

	for _, tc := range cases {
		got, err := ParseStatus(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseStatus(%q): expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseStatus(%q): unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseStatus(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCanTransitionTo(t *testing.T) {
	all := []Status{StatusIdle, StatusLinkIssued, StatusRequested, StatusDelivered}

	allowed := map[Status]map[Status]bool{
		StatusIdle: {
			StatusLinkIssued: true,
			StatusRequested:  true,
			StatusDelivered:  true,
		},
		StatusLinkIssued: {
			StatusLinkIssued: true, // re-issue keeps the state
			StatusRequested:  true,
			StatusDelivered:  true,
		},
		StatusRequested: {
			StatusDelivered: true,
		},
		StatusDelivered: {},
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[from][to]
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s: got %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestStatusNeverMovesBackward(t *testing.T) {
	all := []Status{StatusIdle, StatusLinkIssued, StatusRequested, StatusDelivered}

	for _, from := range all {
		for _, to := range all {
			if to.Rank() < from.Rank() && from.CanTransitionTo(to) {
				t.Errorf("backward transition allowed: %s -> %s", from, to)
			}
		}
	}
}

func TestTerminal(t *testing.T) {
	if !StatusDelivered.Terminal() {
		t.Error("DELIVERED must be terminal")
	}
	for _, s := range []Status{StatusIdle, StatusLinkIssued, StatusRequested} {
		if s.Terminal() {
			t.Errorf("%s must not be terminal", s)
		}
	}
}

func TestRankOrdering(t *testing.T) {
	ordered := []Status{StatusIdle, StatusLinkIssued, StatusRequested, StatusDelivered}
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Rank() <= ordered[i-1].Rank() {
			t.Errorf("rank of %s (%d) must exceed rank of %s (%d)",
				ordered[i], ordered[i].Rank(), ordered[i-1], ordered[i-1].Rank())
		}
	}
	if Status("BOGUS").Rank() != -1 {
		t.Error("unknown status must rank -1")
	}
}

func TestNewVehicle(t *testing.T) {
	v, err := NewVehicle("  abc-123 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.PlateNumber != "ABC-123" {
		t.Errorf("plate not normalized: %q", v.PlateNumber)
	}
	if v.Status != StatusIdle {
		t.Errorf("new vehicle status = %s, want IDLE", v.Status)
	}
	if !v.Active() {
		t.Error("new vehicle must be active")
	}

	if _, err := NewVehicle("   "); err == nil {
		t.Error("blank plate must be rejected")
	}
}
