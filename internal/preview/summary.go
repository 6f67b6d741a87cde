package preview

import (
	"fmt"

	"github.com/vrsandeep/cne-console/internal/models"
)

type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Summary is the set of tiles shown above the preview table.
type Summary struct {
	Total   int     `json:"total"`
	ByTipo  []Count `json:"by_tipo"`
	ByList  []Count `json:"by_list"`
	Flagged int     `json:"flagged"`
}

// FormatTipo maps the list type code to its label.
func FormatTipo(tipo string) string {
	switch tipo {
	case "2":
		return "Efetivos"
	case "3":
		return "Suplentes"
	default:
		return tipo
	}
}

// ListLabel is the per-list tile label: the list name, or "Sem nome", with
// the list type in parentheses.
func ListLabel(row models.PreviewRow) string {
	name := "Sem nome"
	if row.ListName != nil {
		name = *row.ListName
	}
	return fmt.Sprintf("%s (%s)", name, FormatTipo(row.ListType))
}

// RowKey identifies a row within one rendered page.
func RowKey(row models.PreviewRow, index int) string {
	return fmt.Sprintf("%s-%s-%s-%d-%d", row.District, row.Body, row.ListType, row.Order, index)
}

// Summarize counts rows by type label and by list, both in first-seen order.
func Summarize(rows []models.PreviewRow) Summary {
	s := Summary{Total: len(rows), ByTipo: []Count{}, ByList: []Count{}}
	tipoIdx := make(map[string]int)
	listIdx := make(map[string]int)
	for _, row := range rows {
		s.ByTipo = bump(s.ByTipo, tipoIdx, FormatTipo(row.ListType))
		s.ByList = bump(s.ByList, listIdx, ListLabel(row))
		if row.Flagged() {
			s.Flagged++
		}
	}
	return s
}

func bump(counts []Count, idx map[string]int, label string) []Count {
	if i, ok := idx[label]; ok {
		counts[i].Count++
		return counts
	}
	idx[label] = len(counts)
	return append(counts, Count{Label: label, Count: 1})
}
