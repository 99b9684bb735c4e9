package excel

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/MahirRamani/consumer-store/internal/domain"

	"github.com/xuri/excelize/v2"
)

var headerAliases = map[string]string{
	"name":            "name",
	"student name":    "name",
	"student":         "name",
	"roll number":     "roll_number",
	"roll no":         "roll_number",
	"roll":            "roll_number",
	"standard":        "standard",
	"class":           "standard",
	"grade":           "standard",
	"year":            "year",
	"enrollment year": "year",
	"balance":         "balance",
	"opening balance": "balance",
	"amount":          "balance",
}

// ParseStudentRoster reads a roster workbook into import rows. The first
// sheet is used; headers are matched case-insensitively through the alias
// table above, so exports from different spreadsheet tools all work.
func ParseStudentRoster(reader io.Reader) ([]domain.StudentImportRow, error) {
	file, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("open excel file: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("excel file has no sheets")
	}

	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("excel file is empty")
	}

	colMap := mapColumns(rows[0])
	if _, ok := colMap["name"]; !ok {
		return nil, fmt.Errorf("missing required column: name")
	}
	if _, ok := colMap["roll_number"]; !ok {
		return nil, fmt.Errorf("missing required column: roll_number")
	}

	result := make([]domain.StudentImportRow, 0, len(rows)-1)
	for index := 1; index < len(rows); index++ {
		cells := rows[index]
		name := strings.TrimSpace(readCell(cells, colMap["name"]))
		if name == "" {
			continue
		}
		roll := strings.TrimSpace(readCell(cells, colMap["roll_number"]))
		if roll == "" {
			return nil, fmt.Errorf("row %d missing roll number", index+1)
		}

		standard := ""
		if idx, ok := colMap["standard"]; ok {
			standard = strings.TrimSpace(readCell(cells, idx))
		}

		year := 0
		if idx, ok := colMap["year"]; ok {
			raw := strings.TrimSpace(readCell(cells, idx))
			if raw != "" {
				parsed, err := parseInt(raw)
				if err != nil {
					return nil, fmt.Errorf("row %d invalid year: %w", index+1, err)
				}
				year = parsed
			}
		}

		var balance domain.Money
		if idx, ok := colMap["balance"]; ok {
			raw := strings.TrimSpace(readCell(cells, idx))
			if raw != "" {
				parsed, err := domain.ParseMoney(strings.ReplaceAll(raw, ",", ""))
				if err != nil {
					return nil, fmt.Errorf("row %d invalid balance: %w", index+1, err)
				}
				balance = parsed
			}
		}

		result = append(result, domain.StudentImportRow{
			Name:       name,
			RollNumber: roll,
			Standard:   standard,
			Year:       year,
			Balance:    balance,
		})
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("excel file has no valid data rows")
	}
	return result, nil
}

func mapColumns(header []string) map[string]int {
	mapped := make(map[string]int)
	for idx, col := range header {
		normalized := normalizeHeader(col)
		if normalized == "" {
			continue
		}
		canonical, ok := headerAliases[normalized]
		if !ok {
			continue
		}
		if _, exists := mapped[canonical]; !exists {
			mapped[canonical] = idx
		}
	}
	return mapped
}

func normalizeHeader(raw string) string {
	value := strings.TrimSpace(raw)
	value = strings.TrimPrefix(value, "\uFEFF")
	value = strings.ToLower(value)
	value = strings.ReplaceAll(value, "_", " ")
	value = strings.Join(strings.Fields(value), " ")
	return value
}

func readCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func parseInt(raw string) (int, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, fmt.Errorf("value is empty")
	}

	asFloat, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	if math.Mod(asFloat, 1) != 0 {
		return 0, fmt.Errorf("must be an integer")
	}
	return int(asFloat), nil
}
