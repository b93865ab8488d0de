package portalx

import (
	"strings"
	"time"
)

// Category is the display bucket derived from a raw status label.
type Category string

const (
	CategoryNormal    Category = "normal"
	CategoryWarning   Category = "warning"
	CategoryOverdue   Category = "overdue"
	CategoryCancelled Category = "cancelled"
	CategoryUnknown   Category = "unknown"
)

// StatusConfig is pure derived display data. It has no identity: callers
// recompute it from the record on every use and never cache it.
type StatusConfig struct {
	Category Category
	Label    string
}

// The three vocabularies are matched in this order, first match wins. A
// label that collides across vocabularies resolves to the earliest one:
// "pendente" belongs to the payment vocabulary even though it also appears
// in the date-fallback set below.
var classificationVocabularies = []map[string]StatusConfig{
	// Payment status.
	{
		"pago":      {Category: CategoryNormal, Label: "Pago"},
		"pendente":  {Category: CategoryWarning, Label: "Pendente"},
		"atrasado":  {Category: CategoryOverdue, Label: "Atrasado"},
		"cancelado": {Category: CategoryCancelled, Label: "Cancelado"},
	},
	// Situation.
	{
		"normal":    {Category: CategoryNormal, Label: "Normal"},
		"urgente":   {Category: CategoryWarning, Label: "Urgente"},
		"bloqueado": {Category: CategoryCancelled, Label: "Bloqueado"},
		"regular":   {Category: CategoryNormal, Label: "Regular"},
	},
	// Lifecycle.
	{
		"ativo":       {Category: CategoryNormal, Label: "Ativo"},
		"inativo":     {Category: CategoryCancelled, Label: "Inativo"},
		"processando": {Category: CategoryWarning, Label: "Processando"},
		"concluído":   {Category: CategoryNormal, Label: "Concluído"},
		"concluido":   {Category: CategoryNormal, Label: "Concluído"},
	},
}

// dateFallbackSet lists the remaining recognized labels, classified by date
// arithmetic instead of a fixed mapping. "pendente" here is unreachable
// because the payment vocabulary claims it first; kept to mirror the portal.
var dateFallbackSet = map[string]struct{}{
	"gerado":     {},
	"rejeitado":  {},
	"confirmado": {},
	"remessa":    {},
	"pendente":   {},
}

// Classify maps a raw status label plus optional payment and due dates to a
// display configuration. It is deterministic and total: any input yields a
// config, unrecognized labels come back as CategoryUnknown carrying the raw
// text.
func Classify(status, paymentDate, dueDate string) StatusConfig {
	return classifyAt(status, paymentDate, dueDate, time.Now())
}

func classifyAt(status, paymentDate, dueDate string, now time.Time) StatusConfig {
	norm := strings.ToLower(strings.TrimSpace(status))

	for _, vocabulary := range classificationVocabularies {
		if cfg, ok := vocabulary[norm]; ok {
			return cfg
		}
	}

	if _, ok := dateFallbackSet[norm]; ok {
		due := startOfDay(dueDateOrEpoch(dueDate))
		today := startOfDay(now)
		if due.Before(today) && strings.TrimSpace(paymentDate) == "" {
			return StatusConfig{Category: CategoryOverdue, Label: "Vencido"}
		}
		return StatusConfig{Category: CategoryWarning, Label: "Pendente"}
	}

	return StatusConfig{Category: CategoryUnknown, Label: status}
}

// ParseDate accepts the portal's two textual date forms, dd/mm/yyyy and
// yyyy-mm-dd, interpreted in local calendar time so midnight boundaries do
// not shift the day. A timestamp suffix after the date part is ignored.
func ParseDate(value string) (time.Time, bool) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, false
	}
	if idx := strings.IndexByte(s, 'T'); idx > 0 {
		s = s[:idx]
	}
	for _, layout := range []string{"02/01/2006", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// dueDateOrEpoch never fails: a missing or unparseable due date reads as the
// oldest possible date. Presentation decides separately whether a supplied
// string that fails to parse should display as invalid.
func dueDateOrEpoch(value string) time.Time {
	if t, ok := ParseDate(value); ok {
		return t
	}
	return time.Time{}
}

func startOfDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.Local)
}

// DisplayDueDate formats a due date for presentation. An empty input stays
// empty; a supplied string that fails to parse displays as invalid data,
// which is distinct from an unknown status.
func DisplayDueDate(dueDate string) string {
	s := strings.TrimSpace(dueDate)
	if s == "" {
		return ""
	}
	t, ok := ParseDate(s)
	if !ok {
		return "Data Inválida"
	}
	return t.Format("02/01/2006")
}

// PaymentDateLabel formats the payment date shown next to a completed
// status, substituting today when the field is missing or unparseable. A
// presentation nicety only: it never feeds back into classification.
func PaymentDateLabel(paymentDate string) string {
	if t, ok := ParseDate(paymentDate); ok {
		return t.Format("02/01/2006")
	}
	return time.Now().Format("02/01/2006")
}
