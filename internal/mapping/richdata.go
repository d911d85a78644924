// Package mapping resolves WhatsApp template variables from a detected
// event row. A row is first normalized into RichData, a typed view with
// dotted semantic keys ("client.name", "invoice.link", ...), legacy flat
// keys kept for older mappings, and the raw columns as a last resort.
package mapping

import (
	"time"

	"github.com/diljot111/easy-software/internal/remotedb"
)

// Defaults applied when a tenant or row does not provide a value.
const (
	DefaultBusinessName  = "Our Salon"
	DefaultBusinessPhone = "919999999999"
	DefaultCustomer      = "Customer"
	DefaultPhone         = "N/A"
	DefaultTime          = "10:00 AM"
	DefaultService       = "Service"
	Placeholder          = "-"

	displayDate = "02 Jan 2006" // en-IN short style, e.g. "14 Aug 2025"
	numericDate = "02/01/2006"  // en-IN numeric style
)

// Business identifies the sending tenant.
type Business struct {
	Name  string
	Phone string
}

// RichData is the normalized view of one event row.
type RichData struct {
	Client struct {
		Name        string
		Phone       string
		DOB         string
		Anniversary string
		Pending     string
		Rewards     string
	}
	Appointment struct {
		Date    string
		Time    string
		Service string
	}
	Invoice struct {
		Amount string
		Date   string
		Link   string
	}
	System struct {
		Name  string
		Phone string
		Link  string
	}
	Raw remotedb.Row
}

// NewRichData derives every semantic value from row. dateColumn is the
// event's own date column, consulted when the row has no appointment-style
// date; now is the final fallback. link is the (possibly shortened) bill link.
func NewRichData(row remotedb.Row, biz Business, dateColumn, link string, now time.Time, loc *time.Location) RichData {
	if loc == nil {
		loc = time.UTC
	}
	var d RichData
	d.Raw = row

	when := now.In(loc)
	for _, col := range []string{"appdate", "appointment_date", "date", "booking_date", dateColumn} {
		if col == "" {
			continue
		}
		if t, ok := row.Time(col, loc); ok {
			when = t
			break
		}
	}
	formatted := when.Format(displayDate)

	d.Client.Name = or(row, DefaultCustomer, "name", "client_name")
	d.Client.Phone = or(row, DefaultPhone, "phone", "cont", "mobile")
	d.Client.DOB = dateOr(row, "dob", loc)
	d.Client.Anniversary = dateOr(row, "aniversary", loc)
	d.Client.Pending = or(row, "0", "pending")
	d.Client.Rewards = or(row, "0", "points")

	d.Appointment.Date = formatted
	d.Appointment.Time = or(row, DefaultTime, "itime", "time", "start_time")
	d.Appointment.Service = or(row, DefaultService, "details", "service", "treatment")

	d.Invoice.Amount = or(row, "0", "total", "net_amt", "amount", "final_total")
	d.Invoice.Date = formatted
	d.Invoice.Link = link

	d.System.Name = biz.Name
	if d.System.Name == "" {
		d.System.Name = DefaultBusinessName
	}
	d.System.Phone = biz.Phone
	if d.System.Phone == "" {
		d.System.Phone = DefaultBusinessPhone
	}
	d.System.Link = link
	return d
}

// Lookup resolves a mapping key. Semantic and legacy keys always resolve;
// raw columns resolve when present, with NULL or blank values rendered as
// Placeholder. ok is false for keys the row knows nothing about.
func (d RichData) Lookup(key string) (string, bool) {
	switch key {
	case "client.name", "name":
		return d.Client.Name, true
	case "client.phone":
		return d.Client.Phone, true
	case "client.dob":
		return d.Client.DOB, true
	case "client.anniversary":
		return d.Client.Anniversary, true
	case "client.pending":
		return d.Client.Pending, true
	case "client.rewards":
		return d.Client.Rewards, true
	case "invoice.amount":
		return d.Invoice.Amount, true
	case "invoice.date":
		return d.Invoice.Date, true
	case "invoice.link", "short_link":
		return d.Invoice.Link, true
	case "appointment.date", "appdate":
		return d.Appointment.Date, true
	case "appointment.time", "itime":
		return d.Appointment.Time, true
	case "appointment.service", "details", "service":
		return d.Appointment.Service, true
	case "system.name", "business_name":
		return d.System.Name, true
	case "system.phone":
		return d.System.Phone, true
	case "system.link":
		return d.System.Link, true
	}
	if _, present := d.Raw[key]; present {
		if s, ok := d.Raw.String(key); ok {
			return s, true
		}
		return Placeholder, true
	}
	return "", false
}

func or(row remotedb.Row, def string, cols ...string) string {
	if s, ok := row.First(cols...); ok {
		return s
	}
	return def
}

func dateOr(row remotedb.Row, col string, loc *time.Location) string {
	if t, ok := row.Time(col, loc); ok {
		return t.Format(numericDate)
	}
	return Placeholder
}
