package domain

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCase = cases.Title(language.English)

// sheetDate renders a calendar date day-first, or "Pending" when unset.
func sheetDate(s string) string {
	t, ok := ParseDate(s)
	if !ok {
		return "Pending"
	}
	return t.Format("02/01/2006")
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// docStatusLabel turns "pending" into "Pending".
func docStatusLabel(s DocumentStatus) string {
	return titleCase.String(string(s))
}

// Sheet renders a plain-text summary of the client suitable for pasting into
// a chat message or email.
func Sheet(c Client) string {
	var b strings.Builder

	address := c.Street + ", " + c.Number
	if c.Complement != "" {
		address += " - " + c.Complement
	}

	fmt.Fprintln(&b, "*SOLARTEK - CLIENT SHEET*")
	fmt.Fprintln(&b, "--------------------------------")
	fmt.Fprintln(&b, "*PERSONAL DATA*")
	fmt.Fprintf(&b, "Name: %s\n", c.Name)
	fmt.Fprintf(&b, "Tax ID: %s\n", c.TaxID)
	fmt.Fprintf(&b, "Phone: %s\n", c.Phone)
	fmt.Fprintf(&b, "Email: %s\n", orDefault(c.Email, "Not provided"))
	fmt.Fprintf(&b, "Address: %s\n", address)
	fmt.Fprintf(&b, "Neighborhood: %s | City: %s - %s\n", c.Neighborhood, c.City, c.PostalCode)
	fmt.Fprintf(&b, "Reference point: %s\n", orDefault(c.ReferencePoint, "-"))
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "*TECHNICAL DATA*")
	fmt.Fprintf(&b, "Consumer unit: %s\n", c.ConsumerUnit)
	fmt.Fprintf(&b, "Utility: %s\n", c.UtilityCompany)
	fmt.Fprintf(&b, "Breaker: %s\n", c.BreakerRating)
	fmt.Fprintf(&b, "System: %s\n", c.SystemType)
	if c.HasUTM() {
		fmt.Fprintf(&b, "UTM: %s %sE %sN\n", c.UTMZone, c.UTMEasting, c.UTMNorthing)
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "*PROJECT STATUS*")
	fmt.Fprintf(&b, "Current status: %s\n", c.Status)
	fmt.Fprintf(&b, "Project time: %g hours\n", c.ProjectHours)
	fmt.Fprintf(&b, "Homologation entry: %s\n", sheetDate(c.HomologationEntryDate))
	fmt.Fprintf(&b, "Utility response: %s\n", sheetDate(c.UtilityResponseDate))
	fmt.Fprintf(&b, "Inspection: %s\n", sheetDate(c.InspectionDate))
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "*DOCUMENTATION*")
	fmt.Fprintf(&b, "Identity: %s\n", docStatusLabel(c.IdentityDocStatus))
	fmt.Fprintf(&b, "Energy bill: %s\n", docStatusLabel(c.EnergyBillStatus))
	fmt.Fprintf(&b, "Power of attorney: %s\n", docStatusLabel(c.PowerOfAttorneyStatus))
	fmt.Fprintf(&b, "Other documents: %s", docStatusLabel(c.OtherDocsStatus))

	return b.String()
}
