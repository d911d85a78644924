package domain

import "testing"

func TestParseEventKind_Vocabulary(t *testing.T) {
	cases := []struct {
		in   string
		want EventKind
	}{
		{"Birthday", EventBirthday},
		{"Anniversary", EventAnniversary},
		{"New Enquiry / Walkin", EventEnquiry},
		{"walkin", EventEnquiry},
		{"Pending payment", EventPendingPayment},
		{"New appointment", EventNewAppointment},
		{"Appointment re-schedule", EventAppointmentReschedule},
		{"Appointment cancel", EventAppointmentCancel},
		{"Reward points granted / earned", EventReward},
		{"membership buy", EventMembership},
		{"Service reminder", EventServiceReminder},
		{"New bill", EventNewBill},
		{"Feedback after 2 mins of new bill generation", EventNewBill},
		{"Appointment reminder before 30 mins of appopintment", EventAppointmentReminder},
		{"something else", EventUnknown},
		{"", EventUnknown},
	}
	for _, tc := range cases {
		if got := ParseEventKind(tc.in); got != tc.want {
			t.Errorf("ParseEventKind(%q) = %v; want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseEventKind_PrecedenceFollowsMatcherOrder(t *testing.T) {
	// "pending" is tested before the appointment kinds.
	if got := ParseEventKind("Pending appointment cancel"); got != EventPendingPayment {
		t.Fatalf("got %v; want pending", got)
	}
	// appointment reminder wins over service reminder.
	if got := ParseEventKind("appointment reminder / service reminder"); got != EventAppointmentReminder {
		t.Fatalf("got %v; want appointment reminder", got)
	}
}

func TestEventKind_RecurringAndLabels(t *testing.T) {
	for _, k := range EventKinds() {
		want := k == EventBirthday || k == EventAnniversary
		if k.Recurring() != want {
			t.Errorf("%v.Recurring() = %v", k, k.Recurring())
		}
		if k.String() == "Unknown" {
			t.Errorf("kind %d has no label", int(k))
		}
		// canonical labels classify back to themselves
		if ParseEventKind(k.String()) != k {
			t.Errorf("label %q does not round-trip", k.String())
		}
	}
	if EventUnknown.String() != "Unknown" {
		t.Fatalf("unknown label = %q", EventUnknown.String())
	}
	if len(EventKinds()) != 12 {
		t.Fatalf("EventKinds() = %d kinds", len(EventKinds()))
	}
}

func TestAutomationRule_Kind(t *testing.T) {
	r := AutomationRule{EventType: "  NEW BILL  "}
	if r.Kind() != EventNewBill {
		t.Fatalf("Kind() = %v", r.Kind())
	}
}
