package importer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const csvHeader = "family_number,name,nid,role,address,dob,phone,alt_phone,shelter,housing,needs,health,shoe,clothes,pregnant,nursing,delegate\n"

func TestReadRowsCSV(t *testing.T) {
	input := "\ufeff" + csvHeader +
		"101,Yousef Ali,111111111,زوج,Sector B,15/03/1980,0599123456,,خيمة جاهزة,,,,42,L,,,Ahmad Khalil\n" +
		",,,,,,,,,,,,,,,,\n" +
		"101,Mariam Ali,222222222,زوجة,Sector B,1985-06-02,,,,,,asthma,38,M,نعم,no,\n"

	rows, err := ReadRows("families.CSV", strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "101", rows[0].FamilyNumber)
	assert.Equal(t, "زوج", rows[0].Role)
	assert.Equal(t, "15/03/1980", rows[0].DateOfBirth)
	assert.Equal(t, "خيمة جاهزة", rows[0].Shelter)
	assert.Equal(t, "Ahmad Khalil", rows[0].Delegate)
	assert.False(t, rows[0].Pregnant)

	assert.Equal(t, 4, rows[1].Line)
	assert.Equal(t, "asthma", rows[1].HealthNotes)
	assert.True(t, rows[1].Pregnant)
	assert.False(t, rows[1].Nursing)
	assert.Empty(t, rows[1].Delegate)
}

func TestReadRowsXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	header := strings.Split(strings.TrimSpace(csvHeader), ",")
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{
		"7", "Huda Saleh", "333333333", "أرملة", "Sector C", 29295, "599123456", "", "house",
		"", "", "", "", "", "yes", "1", "sara naser",
	}))

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	rows, err := ReadRows("upload.xlsx", &buf)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "7", row.FamilyNumber)
	assert.Equal(t, "1980-03-15", row.DateOfBirth)
	assert.Equal(t, "599123456", row.Phone)
	assert.True(t, row.Pregnant)
	assert.True(t, row.Nursing)
	assert.Equal(t, "sara naser", row.Delegate)
}

func TestReadRowsRejectsUnknownFormat(t *testing.T) {
	_, err := ReadRows("families.ods", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSerialToDate(t *testing.T) {
	assert.Equal(t, "1980-03-15", serialToDate("29295"))
	assert.Equal(t, "15/03/1980", serialToDate("15/03/1980"))
	assert.Equal(t, "", serialToDate(""))
}
