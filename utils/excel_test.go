package utils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteThenReadSpreadsheet(t *testing.T) {
	var buf bytes.Buffer
	err := WriteSpreadsheet(&buf, "Clientes",
		[]string{"Nombre", "Apellidos", "Teléfono", "email"},
		[][]interface{}{
			{"Ana", "García", "612345678", "ana@example.com"},
			{"Luis", "Pérez", "", ""},
		})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Clientes"}, f.GetSheetList())
	header, err := f.GetCellValue("Clientes", "C1")
	require.NoError(t, err)
	assert.Equal(t, "Teléfono", header)

	rows, err := ReadSpreadsheet("listado.XLSX", buf.Bytes(), 4)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Ana", "García", "612345678", "ana@example.com"}, rows[0])
	assert.Equal(t, []string{"Luis", "Pérez", "", ""}, rows[1])
}

func TestReadSpreadsheetRejectsOtherFormats(t *testing.T) {
	_, err := ReadSpreadsheet("clients.csv", []byte("a,b"), 4)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestReadSpreadsheetCorruptWorkbook(t *testing.T) {
	_, err := ReadSpreadsheet("clients.xlsx", []byte("not a zip"), 4)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupportedFormat)
}
