package common

// Pagination is the metadata block attached to product list responses.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
}

// NewPagination builds the metadata block for one page of a listing.
func NewPagination(page, perPage int, total int64) Pagination {
	return Pagination{Page: page, PerPage: perPage, TotalItems: int(total)}
}
