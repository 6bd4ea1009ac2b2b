package extractor

import (
	"regexp"
	"strings"
)

var (
	invoiceNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Invoice\s*#?\s*:?\s*([A-Z0-9\-]+)`),
		regexp.MustCompile(`(?i)Invoice\s*Number\s*:?\s*([A-Z0-9\-]+)`),
		regexp.MustCompile(`(?i)INV\s*#?\s*:?\s*([A-Z0-9\-]+)`),
	}
	invoiceDatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Invoice\s*Date\s*:?\s*(\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4})`),
		regexp.MustCompile(`(?i)Date\s*:?\s*(\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4})`),
		regexp.MustCompile(`(\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4})`),
	}
	invoiceTotalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Grand\s*Total\s*:?\s*\$?([0-9,]+\.?\d{0,2})`),
		regexp.MustCompile(`(?i)Amount\s*Due\s*:?\s*\$?([0-9,]+\.?\d{0,2})`),
		regexp.MustCompile(`(?i)Total\s*:?\s*\$?([0-9,]+\.?\d{0,2})`),
	}
	invoiceKeywords = regexp.MustCompile(`(?i)invoice|date|total`)
)

// ExtractInvoiceFields pulls invoice number, date, total and a vendor
// guess out of free text. Best effort, fields are simply absent when no
// pattern matches.
func ExtractInvoiceFields(text string) map[string]string {
	fields := map[string]string{}

	if v := firstMatch(invoiceNumberPatterns, text); v != "" {
		fields["invoice_number"] = v
	}
	if v := firstMatch(invoiceDatePatterns, text); v != "" {
		fields["invoice_date"] = v
	}
	if v := firstMatch(invoiceTotalPatterns, text); v != "" {
		fields["total_amount"] = v
	}

	// vendor name usually sits in the first lines, above the field labels
	lines := strings.Split(text, "\n")
	if len(lines) > 10 {
		lines = lines[:10]
	}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if len(line) > 5 && !invoiceKeywords.MatchString(line) {
			fields["vendor"] = line
			break
		}
	}

	return fields
}

func firstMatch(patterns []*regexp.Regexp, text string) string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(text); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}
