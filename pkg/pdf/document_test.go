package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_ProducesPDF(t *testing.T) {
	r := NewRenderer("Flota")
	r.now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }

	out, err := r.Render(Document{
		Title:    "Informe de costos del viaje",
		Subtitle: "Santiago - Valparaíso",
		Footer:   "Sistema de Gestión de Flota",
		Sections: []Section{
			{
				Heading: "Datos del bus",
				Fields:  []Field{{Label: "Patente", Value: "ABCD12"}, {Label: "Año", Value: "2019"}},
			},
			{
				Heading: "Paradas de combustible",
				Table: &Table{
					Headers: []string{"#", "Odómetro", "Litros", "Costo"},
					Rows:    [][]string{{"1", "100.300", "40,00", "$40.000"}, {"2"}},
				},
				Note: "Total de paradas: 2",
			},
			{
				Heading: "Peajes",
				Table:   &Table{Headers: []string{"Lugar", "Monto"}, Widths: []float64{120, 60}, BlankRows: 5},
			},
		},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Greater(t, len(out), 500)
}

func TestRender_EmptyDocument(t *testing.T) {
	out, err := NewRenderer("Flota").Render(Document{Title: "Vacío"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestColumnWidths(t *testing.T) {
	assert.Equal(t, []float64{90, 90}, columnWidths(&Table{Headers: []string{"a", "b"}}))
	assert.Equal(t, []float64{10, 170}, columnWidths(&Table{Headers: []string{"a", "b"}, Widths: []float64{10, 170}}))
	assert.Nil(t, columnWidths(&Table{}))
}

func TestFormatPesos(t *testing.T) {
	tests := []struct {
		amount int64
		want   string
	}{
		{0, "$0"},
		{950, "$950"},
		{1000, "$1.000"},
		{76750, "$76.750"},
		{1234567, "$1.234.567"},
		{-4500, "-$4.500"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatPesos(tt.amount))
	}
	assert.Equal(t, "100.300", FormatNumber(100300))
	assert.Equal(t, "-12.000", FormatNumber(-12000))
}
