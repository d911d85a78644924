package domain

import "strings"

// EventKind is the closed set of business events the engine can detect.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventBirthday
	EventAnniversary
	EventEnquiry
	EventPendingPayment
	EventAppointmentReminder
	EventAppointmentCancel
	EventAppointmentReschedule
	EventNewAppointment
	EventReward
	EventMembership
	EventServiceReminder
	EventNewBill
)

var kindLabels = map[EventKind]string{
	EventBirthday:              "Birthday",
	EventAnniversary:           "Anniversary",
	EventEnquiry:               "New Enquiry / Walkin",
	EventPendingPayment:        "Pending payment",
	EventAppointmentReminder:   "Appointment reminder before 30 mins of appointment",
	EventAppointmentCancel:     "Appointment cancel",
	EventAppointmentReschedule: "Appointment re-schedule",
	EventNewAppointment:        "New appointment",
	EventReward:                "Reward points granted / earned",
	EventMembership:            "membership buy",
	EventServiceReminder:       "Service reminder",
	EventNewBill:               "New bill",
}

// kindMatchers is evaluated in order; the first matching keyword wins.
// "Appointment reminder ..." must be tested before "service reminder" and
// both before the generic "new bill"/"feedback" match.
var kindMatchers = []struct {
	kind     EventKind
	keywords []string
}{
	{EventBirthday, []string{"birthday"}},
	{EventAnniversary, []string{"anniversary"}},
	{EventEnquiry, []string{"enquiry", "walkin"}},
	{EventPendingPayment, []string{"pending"}},
	{EventAppointmentReminder, []string{"appointment reminder"}},
	{EventAppointmentCancel, []string{"appointment cancel"}},
	{EventAppointmentReschedule, []string{"appointment re-schedule"}},
	{EventNewAppointment, []string{"new appointment"}},
	{EventReward, []string{"reward"}},
	{EventMembership, []string{"membership"}},
	{EventServiceReminder, []string{"service reminder"}},
	{EventNewBill, []string{"new bill", "feedback"}},
}

// ParseEventKind classifies free-text event types by case-insensitive
// keyword match. Unrecognized text yields EventUnknown.
func ParseEventKind(s string) EventKind {
	evt := strings.ToLower(s)
	for _, m := range kindMatchers {
		for _, kw := range m.keywords {
			if strings.Contains(evt, kw) {
				return m.kind
			}
		}
	}
	return EventUnknown
}

// String returns the canonical label shown to operators.
func (k EventKind) String() string {
	if l, ok := kindLabels[k]; ok {
		return l
	}
	return "Unknown"
}

// Recurring reports whether the event repeats yearly for the same row.
func (k EventKind) Recurring() bool {
	return k == EventBirthday || k == EventAnniversary
}

// EventKinds lists every known kind in classification order.
func EventKinds() []EventKind {
	out := make([]EventKind, 0, len(kindMatchers))
	for _, m := range kindMatchers {
		out = append(out, m.kind)
	}
	return out
}
