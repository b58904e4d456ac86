package excel

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"tokopos/backend/internal/domain"
)

// WriteSalesReport writes the sales report as a one-sheet workbook.
func WriteSalesReport(w io.Writer, report domain.SalesReport) error {
	file := excelize.NewFile()
	defer file.Close()

	sheet := "Laporan"
	index, err := file.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	file.SetActiveSheet(index)
	if err := file.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("remove default sheet: %w", err)
	}

	summary := [][]any{
		{"Penjualan", report.SalesTotal},
		{"Pengeluaran", report.ExpensesTotal},
		{"Keuntungan", report.Profit},
		{"Jumlah Produk", report.TotalProducts},
	}
	row := 1
	for _, pair := range summary {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := file.SetSheetRow(sheet, cell, &pair); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
		row++
	}

	row++
	header := []any{"Bulan", "Penjualan"}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := file.SetSheetRow(sheet, cell, &header); err != nil {
		return fmt.Errorf("write monthly header: %w", err)
	}
	row++
	for _, m := range report.Monthly {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		values := []any{m.Month, m.Total}
		if err := file.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write monthly row: %w", err)
		}
		row++
	}

	row++
	header = []any{"Produk", "SKU", "Stok"}
	cell, err = excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := file.SetSheetRow(sheet, cell, &header); err != nil {
		return fmt.Errorf("write low-stock header: %w", err)
	}
	row++
	for _, p := range report.LowStock {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		values := []any{p.Name, p.SKU, p.Stock}
		if err := file.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write low-stock row: %w", err)
		}
		row++
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
