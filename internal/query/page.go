package query

// PageState tracks the paging cursor for one caller's grid session.
// The adapter writes TotalItemCount and PageItems back after each fetch;
// nothing else mutates it.
type PageState struct {
	Page           int `json:"page"`
	PageSize       int `json:"page_size"`
	TotalItemCount int `json:"total_item_count"`
	PageItems      int `json:"page_items"`
}

// Skip derives the offset of the current page window.
func (p *PageState) Skip() int { return p.PageSize * (p.Page - 1) }

// Normalize clamps the cursor to a valid window. Zero PageSize picks the
// default; it never shrinks a size the caller chose explicitly.
func (p *PageState) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
}

// DefaultPageSize is applied when a caller leaves PageSize unset.
const DefaultPageSize = 10
