package fulfillment

import (
	"fmt"
	"strings"
	"time"

	"groceryFulfillment/models"
)

// PickupUndefined is shown when an order carries no usable pickup information.
const PickupUndefined = "Da definire"

var (
	italianWeekdays = [...]string{"domenica", "lunedì", "martedì", "mercoledì", "giovedì", "venerdì", "sabato"}
	italianMonths   = [...]string{"gennaio", "febbraio", "marzo", "aprile", "maggio", "giugno",
		"luglio", "agosto", "settembre", "ottobre", "novembre", "dicembre"}
)

// SlotLabel is the operator-facing label of a pickup window.
func SlotLabel(s models.PickupSlot) string {
	switch s {
	case models.PickupMorning:
		return "Mattina (9:00-12:00)"
	case models.PickupAfternoon:
		return "Pomeriggio (15:00-18:00)"
	}
	return ""
}

// FormatItalianDate renders t as e.g. "mercoledì 10 settembre 2025".
func FormatItalianDate(t time.Time) string {
	return fmt.Sprintf("%s %d %s %d", italianWeekdays[t.Weekday()], t.Day(), italianMonths[t.Month()-1], t.Year())
}

// PickupDisplay builds the pickup text of an order: the date and slot when
// both are set, otherwise the legacy free text, otherwise PickupUndefined.
func PickupDisplay(o models.Order) string {
	if raw := strings.TrimSpace(o.PickupDateRaw); raw != "" && strings.TrimSpace(o.PickupTime) != "" {
		day, err := time.Parse(time.DateOnly, raw)
		slot, ok := models.ParsePickupSlot(o.PickupTime)
		if err == nil && ok {
			return FormatItalianDate(day) + " - " + SlotLabel(slot)
		}
	}
	if legacy := strings.TrimSpace(o.PickupDate); legacy != "" && legacy != PickupUndefined {
		return legacy
	}
	return PickupUndefined
}
