package excel

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/MahirRamani/consumer-store/internal/domain"
)

func TestParseStudentRoster(t *testing.T) {
	file := excelize.NewFile()
	sheet := file.GetSheetName(0)
	rows := [][]any{
		{"Name", "Roll Number", "Class", "Year", "Opening Balance"},
		{"Asha Patel", "R-104", "8A", 2025, "500.00"},
		{"Ravi Kumar", "R-200", "8B", 2025, "1,250.50"},
		{"", "skipped", "", "", ""},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, file.SetSheetRow(sheet, cell, &row))
	}
	buf, err := file.WriteToBuffer()
	require.NoError(t, err)

	parsed, err := ParseStudentRoster(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, parsed, 2)

	require.Equal(t, "Asha Patel", parsed[0].Name)
	require.Equal(t, "R-104", parsed[0].RollNumber)
	require.Equal(t, "8A", parsed[0].Standard)
	require.Equal(t, 2025, parsed[0].Year)
	require.Equal(t, domain.Money(50000), parsed[0].Balance)

	require.Equal(t, domain.Money(125050), parsed[1].Balance)
}

func TestParseStudentRosterMissingColumns(t *testing.T) {
	file := excelize.NewFile()
	sheet := file.GetSheetName(0)
	header := []any{"Name", "Class"}
	require.NoError(t, file.SetSheetRow(sheet, "A1", &header))
	buf, err := file.WriteToBuffer()
	require.NoError(t, err)

	_, err = ParseStudentRoster(bytes.NewReader(buf.Bytes()))
	require.ErrorContains(t, err, "roll_number")
}

func TestBuildTransactionsReport(t *testing.T) {
	name := "Asha Patel"
	roll := "R-104"
	transactions := []domain.Transaction{
		{
			ID:          12,
			Reference:   "TXN-abc",
			StudentName: &name,
			RollNumber:  &roll,
			Items: []domain.TransactionItem{
				{ProductID: 1, Quantity: 2, UnitPrice: 5000},
			},
			TotalAmount: 10000,
			Status:      domain.TransactionCompleted,
			CreatedAt:   time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC),
		},
	}

	file, err := BuildTransactionsReport(transactions)
	require.NoError(t, err)
	sheet := file.GetSheetName(0)

	header, err := file.GetCellValue(sheet, "A1")
	require.NoError(t, err)
	require.Equal(t, "Transaction ID", header)

	total, err := file.GetCellValue(sheet, "G2")
	require.NoError(t, err)
	require.Equal(t, "100.00", total)

	status, err := file.GetCellValue(sheet, "H2")
	require.NoError(t, err)
	require.Equal(t, "completed", status)
}

func TestBuildInventoryLogReport(t *testing.T) {
	logs := []domain.InventoryLog{
		{
			ID:             3,
			ProductName:    "Notebook",
			Action:         domain.LogActionSale,
			QuantityChange: -2,
			PreviousStock:  10,
			NewStock:       8,
			Reason:         "Sale - Transaction #12",
			CreatedAt:      time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC),
		},
	}

	file, err := BuildInventoryLogReport(logs)
	require.NoError(t, err)
	sheet := file.GetSheetName(0)

	product, err := file.GetCellValue(sheet, "C2")
	require.NoError(t, err)
	require.Equal(t, "Notebook", product)

	change, err := file.GetCellValue(sheet, "E2")
	require.NoError(t, err)
	require.Equal(t, "-2", change)
}
