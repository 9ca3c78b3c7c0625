package catalog

// DefaultPageSize matches the page size the conda-store UI requests.
const DefaultPageSize = 100

// PageCursor is the pagination state of one source. It only moves forward and
// is replaced wholesale by the value a Fetcher returns.
type PageCursor struct {
	// Page is the next page to request, starting at 1.
	Page int
	Size int
	// Total is the count reported by the last response. Zero until Known.
	Total   int
	Known   bool
	HasMore bool
	// Last is the greatest name delivered by this source so far.
	Last string
}

// NewCursor returns a cursor positioned before the first page.
func NewCursor(size int) PageCursor {
	if size <= 0 {
		size = DefaultPageSize
	}
	return PageCursor{Page: 1, Size: size, HasMore: true}
}

// Advance returns the cursor that follows a successful fetch of c.Page whose
// response reported total and whose greatest name was last.
func (c PageCursor) Advance(total int, last string) PageCursor {
	if total < 0 {
		total = 0
	}
	next := c
	next.Page = c.Page + 1
	next.Total = total
	next.Known = true
	// Page grows on every fetch, so a run of empty pages still ends once the
	// pages requested cover total.
	next.HasMore = total > c.Page*c.Size
	if last != "" && compareNames(last, c.Last) > 0 {
		next.Last = last
	}
	return next
}

// Fetched is the number of pages fetched so far.
func (c PageCursor) Fetched() int {
	if c.Page <= 1 {
		return 0
	}
	return c.Page - 1
}
