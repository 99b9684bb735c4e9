package excel

import (
	"fmt"
	"strconv"

	"github.com/MahirRamani/consumer-store/internal/domain"

	"github.com/xuri/excelize/v2"
)

const timeLayout = "2006-01-02 15:04:05"

// BuildTransactionsReport renders transactions into a workbook for download.
// Amounts are written as decimal strings in major units.
func BuildTransactionsReport(transactions []domain.Transaction) (*excelize.File, error) {
	file := excelize.NewFile()
	sheet := file.GetSheetName(0)

	headers := []string{
		"Transaction ID",
		"Reference",
		"Date",
		"Student Name",
		"Roll Number",
		"Items Count",
		"Total Amount",
		"Status",
	}
	if err := writeHeaderRow(file, sheet, headers); err != nil {
		return nil, err
	}

	for i, txn := range transactions {
		name := ""
		if txn.StudentName != nil {
			name = *txn.StudentName
		}
		roll := ""
		if txn.RollNumber != nil {
			roll = *txn.RollNumber
		}
		row := []any{
			txn.ID,
			txn.Reference,
			txn.CreatedAt.Format(timeLayout),
			name,
			roll,
			len(txn.Items),
			txn.TotalAmount.String(),
			txn.Status,
		}
		if err := writeRow(file, sheet, i+2, row); err != nil {
			return nil, err
		}
	}
	return file, nil
}

// BuildInventoryLogReport renders the stock audit trail into a workbook.
func BuildInventoryLogReport(logs []domain.InventoryLog) (*excelize.File, error) {
	file := excelize.NewFile()
	sheet := file.GetSheetName(0)

	headers := []string{
		"Log ID",
		"Date",
		"Product",
		"Action",
		"Quantity Change",
		"Previous Stock",
		"New Stock",
		"Reason",
	}
	if err := writeHeaderRow(file, sheet, headers); err != nil {
		return nil, err
	}

	for i, entry := range logs {
		row := []any{
			entry.ID,
			entry.CreatedAt.Format(timeLayout),
			entry.ProductName,
			entry.Action,
			entry.QuantityChange,
			entry.PreviousStock,
			entry.NewStock,
			entry.Reason,
		}
		if err := writeRow(file, sheet, i+2, row); err != nil {
			return nil, err
		}
	}
	return file, nil
}

func writeHeaderRow(file *excelize.File, sheet string, headers []string) error {
	values := make([]any, len(headers))
	for i, header := range headers {
		values[i] = header
	}
	return writeRow(file, sheet, 1, values)
}

func writeRow(file *excelize.File, sheet string, rowNumber int, values []any) error {
	cell := "A" + strconv.Itoa(rowNumber)
	if err := file.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", rowNumber, err)
	}
	return nil
}
