package portalx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyVocabularies(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		category Category
		label    string
	}{
		{"payment paid", "pago", CategoryNormal, "Pago"},
		{"payment pending", "pendente", CategoryWarning, "Pendente"},
		{"payment late", "atrasado", CategoryOverdue, "Atrasado"},
		{"payment cancelled", "cancelado", CategoryCancelled, "Cancelado"},
		{"situation normal", "normal", CategoryNormal, "Normal"},
		{"situation urgent", "urgente", CategoryWarning, "Urgente"},
		{"situation blocked", "bloqueado", CategoryCancelled, "Bloqueado"},
		{"situation regular", "regular", CategoryNormal, "Regular"},
		{"lifecycle active", "ativo", CategoryNormal, "Ativo"},
		{"lifecycle inactive", "inativo", CategoryCancelled, "Inativo"},
		{"lifecycle processing", "processando", CategoryWarning, "Processando"},
		{"lifecycle completed", "concluído", CategoryNormal, "Concluído"},
		{"lifecycle completed unaccented", "CONCLUIDO", CategoryNormal, "Concluído"},
		{"case insensitive", "Pago", CategoryNormal, "Pago"},
		{"surrounding whitespace", "  pago  ", CategoryNormal, "Pago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Classify(tt.status, "", "01/01/2020")
			assert.Equal(t, tt.category, cfg.Category)
			assert.Equal(t, tt.label, cfg.Label)
		})
	}
}

func TestClassifyPaidIgnoresDates(t *testing.T) {
	cfg := Classify("Pago", "", "01/01/1990")
	assert.Equal(t, CategoryNormal, cfg.Category)

	cfg = Classify("Pago", "15/03/2024", "2099-12-31")
	assert.Equal(t, CategoryNormal, cfg.Category)
}

// "pendente" belongs to both the payment vocabulary and the date-fallback
// set. The payment vocabulary is checked first, so an overdue due date must
// NOT reclassify a pendente record as Vencido.
func TestClassifyPendenteCollisionResolvesToPaymentVocabulary(t *testing.T) {
	cfg := Classify("pendente", "", "2020-01-01")
	assert.Equal(t, CategoryWarning, cfg.Category)
	assert.Equal(t, "Pendente", cfg.Label)
}

func TestClassifyDateFallback(t *testing.T) {
	now := time.Date(2024, time.March, 15, 10, 30, 0, 0, time.Local)

	t.Run("overdue when due before today and unpaid", func(t *testing.T) {
		cfg := classifyAt("Gerado", "", "01/01/2020", now)
		assert.Equal(t, CategoryOverdue, cfg.Category)
		assert.Equal(t, "Vencido", cfg.Label)
	})

	t.Run("pending when due in the future", func(t *testing.T) {
		cfg := classifyAt("Gerado", "", "01/01/2030", now)
		assert.Equal(t, CategoryWarning, cfg.Category)
		assert.Equal(t, "Pendente", cfg.Label)
	})

	t.Run("pending when a payment date is recorded", func(t *testing.T) {
		cfg := classifyAt("remessa", "10/01/2020", "01/01/2020", now)
		assert.Equal(t, CategoryWarning, cfg.Category)
	})

	t.Run("due today is not overdue", func(t *testing.T) {
		cfg := classifyAt("confirmado", "", "15/03/2024", now)
		assert.Equal(t, CategoryWarning, cfg.Category)
	})

	t.Run("missing due date reads as oldest possible", func(t *testing.T) {
		cfg := classifyAt("rejeitado", "", "", now)
		assert.Equal(t, CategoryOverdue, cfg.Category)
	})
}

func TestClassifyUnknownKeepsRawLabel(t *testing.T) {
	cfg := Classify("Aguardando Baixa", "", "01/01/2020")
	assert.Equal(t, CategoryUnknown, cfg.Category)
	assert.Equal(t, "Aguardando Baixa", cfg.Label)

	// Total function: even empty input yields a config.
	cfg = Classify("", "", "")
	assert.Equal(t, CategoryUnknown, cfg.Category)
}

func TestParseDateBothForms(t *testing.T) {
	slash, ok := ParseDate("15/03/2024")
	require.True(t, ok)
	iso, ok := ParseDate("2024-03-15")
	require.True(t, ok)
	assert.True(t, slash.Equal(iso))
	assert.Equal(t, time.Local, slash.Location())

	_, ok = ParseDate("not-a-date")
	assert.False(t, ok)
	_, ok = ParseDate("")
	assert.False(t, ok)

	stamped, ok := ParseDate("2024-03-15T00:00:00Z")
	require.True(t, ok)
	assert.True(t, stamped.Equal(slash))
}

func TestDisplayDueDate(t *testing.T) {
	assert.Equal(t, "15/03/2024", DisplayDueDate("2024-03-15"))
	assert.Equal(t, "15/03/2024", DisplayDueDate("15/03/2024"))
	assert.Equal(t, "Data Inválida", DisplayDueDate("not-a-date"))
	assert.Equal(t, "", DisplayDueDate(""))
}

func TestPaymentDateLabel(t *testing.T) {
	assert.Equal(t, "10/02/2024", PaymentDateLabel("2024-02-10"))

	today := time.Now().Format("02/01/2006")
	assert.Equal(t, today, PaymentDateLabel(""))
	assert.Equal(t, today, PaymentDateLabel("garbage"))
}
