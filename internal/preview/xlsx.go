package preview

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vrsandeep/cne-console/internal/models"
)

const SheetName = "Listas"

// Columns is the CNE import column order used by the table and the export.
var Columns = []string{
	"DTMNFR",
	"ORGAO",
	"TIPO",
	"SIGLA",
	"SIMBOLO",
	"NOME_LISTA",
	"NUM_ORDEM",
	"NOME_CANDIDATO",
	"PARTIDO_PROPONENTE",
	"INDEPENDENTE",
}

// ValidationColumn lists the non-OK flags of a row in the export.
const ValidationColumn = "VALIDACAO"

// WriteXLSX writes rows as a single-sheet workbook.
func WriteXLSX(w io.Writer, rows []models.PreviewRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headers := append(slices.Clone(Columns), ValidationColumn)
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return fmt.Errorf("write header %s: %w", h, err)
		}
	}

	for r, row := range rows {
		values := append(CellValues(row), FlagSummary(row))
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", r+1, err)
			}
		}
	}

	_ = f.SetColWidth(SheetName, "A", "D", 12)
	_ = f.SetColWidth(SheetName, "F", "F", 32)
	_ = f.SetColWidth(SheetName, "H", "H", 40)
	_ = f.SetColWidth(SheetName, "K", "K", 36)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

// CellValues returns the row's values in Columns order.
func CellValues(row models.PreviewRow) []any {
	return []any{
		row.District,
		row.Body,
		row.ListType,
		row.Acronym,
		deref(row.Symbol),
		deref(row.ListName),
		row.Order,
		row.Candidate,
		deref(row.ProposingParty),
		deref(row.Independent),
	}
}

// FlagSummary renders the non-OK flags of a row as "FIELD=FLAG" pairs sorted
// by field.
func FlagSummary(row models.PreviewRow) string {
	var parts []string
	for _, field := range slices.Sorted(maps.Keys(row.Validation)) {
		if flag := row.Validation[field]; flag != models.FlagOK {
			parts = append(parts, field+"="+string(flag))
		}
	}
	return strings.Join(parts, "; ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
