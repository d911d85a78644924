package mapping

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/diljot111/easy-software/internal/domain"
)

// MapVariables produces the ordered parameter values for tpl.
//
// With configured mappings each slot k (1-based) resolves mappings["k"]
// against rich; unknown keys are sent as literal text and unmapped slots
// as Placeholder. Without mappings (or without a template record) a
// heuristic set is chosen from the event kind. When the template is known
// the result always has exactly its total variable count.
func MapVariables(tpl *domain.WhatsAppTemplate, kind domain.EventKind, rich RichData) []string {
	if tpl == nil {
		return Heuristic(kind, rich)
	}
	total := tpl.TotalVariables
	if total == 0 && len(tpl.Components) > 0 {
		total = CountVariables(tpl.Components).Total
	}

	if len(tpl.Mappings) == 0 {
		return Fit(Heuristic(kind, rich), total)
	}

	out := make([]string, 0, total)
	for k := 1; k <= total; k++ {
		key := mappingKey(tpl.Mappings[strconv.Itoa(k)])
		if key == "" {
			out = append(out, Placeholder)
			continue
		}
		if v, ok := rich.Lookup(key); ok {
			out = append(out, v)
			continue
		}
		out = append(out, key)
	}
	return out
}

func mappingKey(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// Heuristic returns the conventional parameter set for kind.
func Heuristic(kind domain.EventKind, d RichData) []string {
	switch kind {
	case domain.EventNewBill:
		return []string{d.Client.Name, d.Invoice.Link}
	case domain.EventReward:
		return []string{d.Client.Rewards}
	case domain.EventMembership:
		return []string{d.System.Name}
	case domain.EventPendingPayment:
		return []string{d.Client.Name, d.Invoice.Amount, d.Invoice.Link}
	case domain.EventNewAppointment, domain.EventAppointmentReminder, domain.EventServiceReminder:
		return []string{d.Client.Name, d.Appointment.Service, d.Appointment.Time, d.System.Name}
	case domain.EventAppointmentCancel:
		return []string{d.Appointment.Date, d.System.Name}
	case domain.EventAppointmentReschedule:
		return []string{d.Appointment.Date + " at " + d.Appointment.Time, d.System.Name}
	case domain.EventEnquiry:
		return []string{d.Client.Name, d.System.Name}
	default:
		return []string{d.Client.Name}
	}
}

// Fit pads values with Placeholder or truncates them to exactly n entries.
func Fit(values []string, n int) []string {
	if n < 0 {
		n = 0
	}
	out := make([]string, n)
	for i := range out {
		if i < len(values) && values[i] != "" {
			out[i] = values[i]
		} else {
			out[i] = Placeholder
		}
	}
	return out
}
