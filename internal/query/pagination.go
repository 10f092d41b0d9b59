package query

// Page is the navigation state for one paginated listing.
type Page struct {
	Index       int  `json:"page"`
	Offset      int  `json:"offset"`
	Total       int  `json:"total"`
	TotalPages  int  `json:"total_pages"`
	HasPrevious bool `json:"has_previous"`
	HasNext     bool `json:"has_next"`
}

// PageFor computes navigation state from a requested page index, page size
// and the current exact total. A requested index past the end (the result
// set shrank under a new filter) clamps to the last valid page; the offset
// is never negative.
func PageFor(requested, pageSize, total int) Page {
	if pageSize <= 0 {
		pageSize = 1
	}
	if requested < 0 {
		requested = 0
	}
	if total <= 0 {
		return Page{}
	}

	totalPages := (total + pageSize - 1) / pageSize
	index := requested
	if index > totalPages-1 {
		index = totalPages - 1
	}

	return Page{
		Index:       index,
		Offset:      index * pageSize,
		Total:       total,
		TotalPages:  totalPages,
		HasPrevious: index > 0,
		HasNext:     index < totalPages-1,
	}
}
