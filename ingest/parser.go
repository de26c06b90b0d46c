package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"nz_propper/models"
)

// Expected spreadsheet columns, in the exporter's order. Missing columns
// are tolerated and read as empty.
var expectedColumns = []string{
	"Date (GMT)",
	"Job Link",
	"Origin URL",
	"Auckland Property Listings Limit",
	"Position",
	"Open Home Status",
	"Agent Name",
	"Agency Name",
	"Listing Date",
	"Property Title",
	"Property Address",
	"Bedrooms",
	"Bathrooms",
	"Area",
	"Price",
	"Property Link",
}

// Columns whose cells a spreadsheet tool may have turned numeric; they are
// normalized back to strings ("3.0" -> "3") on the way in.
var numericTextColumns = map[string]bool{
	"Bedrooms":  true,
	"Bathrooms": true,
	"Area":      true,
	"Price":     true,
}

// ParseListings parses an uploaded CSV or Excel file into listing records.
// CSV bytes that are not valid UTF-8 are decoded as Windows-1252, the usual
// culprit for smart quotes in Windows CSV exports.
func ParseListings(data []byte, filename string) ([]models.ListingRecord, error) {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		return parseCSV(data)
	case strings.HasSuffix(lower, ".xlsx"), strings.HasSuffix(lower, ".xls"):
		return parseExcel(data)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", filename)
	}
}

func parseCSV(data []byte) ([]models.ListingRecord, error) {
	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("decode csv: %w", err)
		}
		data = decoded
	}
	// Strip a UTF-8 BOM if present.
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	columns := mapColumns(header)

	var records []models.ListingRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Skip malformed rows, same as the tolerant pandas path.
			continue
		}
		records = append(records, rowToRecord(row, columns))
	}
	return records, nil
}

func parseExcel(data []byte) ([]models.ListingRecord, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	columns := mapColumns(rows[0])

	var records []models.ListingRecord
	for _, row := range rows[1:] {
		records = append(records, rowToRecord(row, columns))
	}
	return records, nil
}

// mapColumns returns the index of each expected column in the header,
// or -1 when absent. Header cells are matched after trimming whitespace.
func mapColumns(header []string) map[string]int {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		byName[strings.TrimSpace(h)] = i
	}

	columns := make(map[string]int, len(expectedColumns))
	for _, col := range expectedColumns {
		if idx, ok := byName[col]; ok {
			columns[col] = idx
		} else {
			columns[col] = -1
		}
	}
	return columns
}

func rowToRecord(row []string, columns map[string]int) models.ListingRecord {
	cell := func(col string) string {
		idx := columns[col]
		if idx < 0 || idx >= len(row) {
			return ""
		}
		value := strings.TrimSpace(row[idx])
		if numericTextColumns[col] {
			value = normalizeNumericCell(value)
		}
		return value
	}

	return models.ListingRecord{
		DateGMT:         cell("Date (GMT)"),
		JobLink:         cell("Job Link"),
		OriginURL:       cell("Origin URL"),
		ListingsLimit:   cell("Auckland Property Listings Limit"),
		Position:        cell("Position"),
		OpenHomeStatus:  cell("Open Home Status"),
		AgentName:       cell("Agent Name"),
		AgencyName:      cell("Agency Name"),
		ListingDate:     cell("Listing Date"),
		PropertyTitle:   cell("Property Title"),
		PropertyAddress: cell("Property Address"),
		Bedrooms:        cell("Bedrooms"),
		Bathrooms:       cell("Bathrooms"),
		Area:            cell("Area"),
		Price:           cell("Price"),
		PropertyLink:    cell("Property Link"),
	}
}

// normalizeNumericCell renders an integral numeric cell without its
// trailing ".0" (spreadsheet tools read "3" back as 3.0). Anything that
// isn't purely numeric passes through untouched.
func normalizeNumericCell(value string) string {
	if value == "" {
		return ""
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return value
	}
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return value
}
