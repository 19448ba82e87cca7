package signals

import (
	"strings"

	"CryptoSign/internal/domain/models"
)

// NoSignal is the text shown for a date without an actionable side.
const NoSignal = "— no signal —"

const dateLayout = "Monday, January 02, 2006"

// Heading renders the calendar date of a record, e.g. "Thursday, March 07, 2024".
func Heading(r models.SignalRecord) string { return r.Date.Format(dateLayout) }

// SignalText renders the actionable side of a record, e.g. "SHORT at 12am, 3am".
func SignalText(r models.SignalRecord) string {
	dir, hours, ok := r.Signal()
	if !ok {
		return NoSignal
	}
	labels := make([]string, len(hours))
	for i, h := range hours {
		labels[i] = h.Label
	}
	return string(dir) + " at " + strings.Join(labels, ", ")
}

// Format renders records as a plain-text calendar, one blank-line separated block per date.
func Format(records []models.SignalRecord) string {
	var b strings.Builder
	for i, r := range records {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(Heading(r))
		b.WriteString("\n→ ")
		b.WriteString(SignalText(r))
		b.WriteString("\n")
	}
	return b.String()
}
