package ingest

import "github.com/JonMunkholm/smartclean/internal/core"

// Page is one window of table rows, serialized with null for missing cells.
type Page struct {
	Data      []map[string]any `json:"data"`
	TotalRows int              `json:"total_rows"`
	Offset    int              `json:"offset"`
	Limit     int              `json:"limit"`
}

// Preview returns rows [offset, offset+limit) of t.
func Preview(t *core.Table, offset, limit int) Page {
	if offset < 0 {
		offset = 0
	}
	return Page{
		Data:      t.Head(offset, limit).Records(nil),
		TotalRows: t.Rows(),
		Offset:    offset,
		Limit:     limit,
	}
}
