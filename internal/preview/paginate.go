package preview

import "github.com/vrsandeep/cne-console/internal/models"

// Page is one client-side page of an aggregated row set.
type Page struct {
	Number     int                 `json:"page"`
	Size       int                 `json:"size"`
	TotalPages int                 `json:"total_pages"`
	TotalRows  int                 `json:"total_rows"`
	Start      int                 `json:"start"`
	End        int                 `json:"end"`
	Rows       []models.PreviewRow `json:"rows"`
}

// Paginate slices rows into pages of size and returns the requested one,
// clamping page into [1, TotalPages]. There is always at least one page.
func Paginate(rows []models.PreviewRow, page, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	totalPages := max(1, (len(rows)+size-1)/size)
	page = min(max(page, 1), totalPages)

	start := min((page-1)*size, len(rows))
	end := min(start+size, len(rows))
	pageRows := rows[start:end]
	if pageRows == nil {
		pageRows = []models.PreviewRow{}
	}
	return Page{
		Number:     page,
		Size:       size,
		TotalPages: totalPages,
		TotalRows:  len(rows),
		Start:      start,
		End:        end,
		Rows:       pageRows,
	}
}

// HasPrev and HasNext drive the pager links.
func (p Page) HasPrev() bool { return p.Number > 1 }
func (p Page) HasNext() bool { return p.Number < p.TotalPages }
