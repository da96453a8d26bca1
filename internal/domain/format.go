package domain

import (
	"regexp"
	"strings"
)

var nonDigit = regexp.MustCompile(`\D`)

// Digits strips everything but 0-9 from s.
func Digits(s string) string {
	return nonDigit.ReplaceAllString(s, "")
}

// FormatTaxID renders a CPF (11 digits) as 000.000.000-00 and a CNPJ
// (14 digits) as 00.000.000/0000-00. Other lengths are returned trimmed.
func FormatTaxID(s string) string {
	d := Digits(s)
	switch len(d) {
	case 11:
		return d[0:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:11]
	case 14:
		return d[0:2] + "." + d[2:5] + "." + d[5:8] + "/" + d[8:12] + "-" + d[12:14]
	}
	return strings.TrimSpace(s)
}

// FormatPostalCode renders an 8 digit CEP as 00000-000.
func FormatPostalCode(s string) string {
	d := Digits(s)
	if len(d) == 8 {
		return d[0:5] + "-" + d[5:8]
	}
	return strings.TrimSpace(s)
}

// FormatPhone renders 10 or 11 digit numbers as (00) 0000-0000 or
// (00) 00000-0000.
func FormatPhone(s string) string {
	d := Digits(s)
	switch len(d) {
	case 10:
		return "(" + d[0:2] + ") " + d[2:6] + "-" + d[6:10]
	case 11:
		return "(" + d[0:2] + ") " + d[2:7] + "-" + d[7:11]
	}
	return strings.TrimSpace(s)
}
