package imports

import (
	"strings"

	"ms-checkin/internal/models"

	"golang.org/x/text/width"
)

// normalize folds full-width characters, drops digit-group separators and
// lowercases, so "８,８００円" and "8800円" compare equal.
func normalize(s string) string {
	s = width.Fold.String(s)
	s = strings.NewReplacer(",", "", "，", "").Replace(s)
	return strings.ToLower(strings.TrimSpace(s))
}

// ResolveTicketType classifies an import row. Rules are scanned in order and
// the first one with a keyword contained in the row's price or product text
// wins. Without a match the row's own ticket type is kept, else Standard.
// A matching rule's start time fills an empty row start time.
func ResolveTicketType(rules []models.TicketRule, row models.ImportRow) (ticketType, startTime string) {
	startTime = strings.TrimSpace(row.StartTime)
	haystack := normalize(row.Price + " " + row.ProductName)

	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			kw = normalize(kw)
			if kw == "" || !strings.Contains(haystack, kw) {
				continue
			}
			if startTime == "" {
				startTime = rule.StartTime
			}
			return rule.Name, startTime
		}
	}

	if t := strings.TrimSpace(row.TicketType); t != "" {
		return t, startTime
	}
	return models.DefaultTicketType, startTime
}
