package deletion

import "testing"

func TestStatusValid(t *testing.T) {
	valid := []Status{StatusPending, StatusUserApproved, StatusUserRejected,
		StatusAdminConfirmed, StatusAdminRejected}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}

	invalid := []Status{StatusLegacyApproved, StatusLegacyRejected, Status("bogus"), Status("")}
	for _, s := range invalid {
		if s.Valid() {
			t.Errorf("%s should not be valid", s)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	terminal := map[Status]bool{
		StatusPending:        false,
		StatusUserApproved:   false,
		StatusUserRejected:   true,
		StatusAdminConfirmed: true,
		StatusAdminRejected:  true,
	}
	for s, want := range terminal {
		if got := s.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", s, got, want)
		}
	}
}

func TestStatusTransitionGates(t *testing.T) {
	if !StatusPending.CanUserRespond() {
		t.Error("pending must accept a user response")
	}
	for _, s := range []Status{StatusUserApproved, StatusUserRejected, StatusAdminConfirmed, StatusAdminRejected} {
		if s.CanUserRespond() {
			t.Errorf("%s must not accept a user response", s)
		}
	}

	if !StatusUserApproved.CanAdminConfirm() {
		t.Error("user_approved must accept admin confirmation")
	}
	for _, s := range []Status{StatusPending, StatusUserRejected, StatusAdminConfirmed, StatusAdminRejected} {
		if s.CanAdminConfirm() {
			t.Errorf("%s must not accept admin confirmation", s)
		}
	}
}
