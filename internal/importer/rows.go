// Package importer turns a family spreadsheet into remote family records. It
// resolves role labels and delegate names first and refuses to write anything
// while a delegate reference is unresolved.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Spreadsheet column positions. The header row is skipped.
const (
	colFamilyNumber = iota
	colName
	colNID
	colRole
	colAddress
	colDateOfBirth
	colPhone
	colAltPhone
	colShelter
	colHousingStatus
	colNeeds
	colHealthNotes
	colShoeSize
	colClothesSize
	colPregnant
	colNursing
	colDelegate
)

// Row is one member line of the spreadsheet.
type Row struct {
	// Line is the 1-based spreadsheet line, header included.
	Line          int
	FamilyNumber  string
	Name          string
	NID           string
	Role          string
	Address       string
	DateOfBirth   string
	Phone         string
	AltPhone      string
	Shelter       string
	HousingStatus string
	Needs         string
	HealthNotes   string
	ShoeSize      string
	ClothesSize   string
	Pregnant      bool
	Nursing       bool
	Delegate      string
}

var ErrUnsupportedFormat = errors.New("unsupported import file format, expected .xlsx or .csv")

// ReadRows parses an .xlsx (first sheet) or .csv upload, chosen by filename.
func ReadRows(filename string, r io.Reader) ([]Row, error) {
	var (
		records [][]string
		err     error
	)

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		records, err = readXLSX(r)
	case ".csv":
		records, err = readCSV(r)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}

	return parseRecords(records), nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	// raw values keep date cells as serial numbers instead of locale formatted text
	records, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}

	for _, rec := range records {
		if colDateOfBirth < len(rec) {
			rec[colDateOfBirth] = serialToDate(rec[colDateOfBirth])
		}
	}

	return records, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}

	return records, nil
}

func parseRecords(records [][]string) []Row {
	rows := make([]Row, 0, len(records))
	for i, rec := range records {
		if i == 0 || blank(rec) {
			continue
		}

		cell := func(col int) string {
			if col >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[col])
		}

		rows = append(rows, Row{
			Line:          i + 1,
			FamilyNumber:  cell(colFamilyNumber),
			Name:          cell(colName),
			NID:           cell(colNID),
			Role:          cell(colRole),
			Address:       cell(colAddress),
			DateOfBirth:   cell(colDateOfBirth),
			Phone:         cell(colPhone),
			AltPhone:      cell(colAltPhone),
			Shelter:       cell(colShelter),
			HousingStatus: cell(colHousingStatus),
			Needs:         cell(colNeeds),
			HealthNotes:   cell(colHealthNotes),
			ShoeSize:      cell(colShoeSize),
			ClothesSize:   cell(colClothesSize),
			Pregnant:      parseYes(cell(colPregnant)),
			Nursing:       parseYes(cell(colNursing)),
			Delegate:      cell(colDelegate),
		})
	}
	return rows
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1", "نعم":
		return true
	default:
		return false
	}
}

// serialToDate converts an Excel serial day number to YYYY-MM-DD and leaves
// any other text untouched.
func serialToDate(s string) string {
	s = strings.TrimSpace(s)
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil || serial < 1 || serial > 2958465 {
		return s
	}

	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return s
	}
	return t.Format("2006-01-02")
}
