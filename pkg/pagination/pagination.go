package pagination

import (
	"net/url"
	"strconv"
)

// DefaultPageSize is the number of records per page.
const DefaultPageSize = 10

// TotalPages returns ceil(totalCount / pageSize). It returns 0 when there
// are no records or the page size is not positive.
func TotalPages(totalCount, pageSize int) int {
	if totalCount <= 0 || pageSize <= 0 {
		return 0
	}
	return (totalCount + pageSize - 1) / pageSize
}

// Clamp limits page to [1, totalPages]. With no pages it returns 1.
func Clamp(page, totalPages int) int {
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	return page
}

// PageFromQuery reads a 1-based page number from a query parameter.
// Missing, malformed and non-positive values yield 1.
func PageFromQuery(values url.Values, param string) int {
	page, err := strconv.Atoi(values.Get(param))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// Link is a numbered page link.
type Link struct {
	Number int
	Href   string
	Active bool
}

// Step is a Previous or Next control. A disabled step renders inert.
type Step struct {
	Number   int
	Href     string
	Disabled bool
}

// Nav describes the pagination controls for one page.
type Nav struct {
	Page       int
	TotalPages int
	Previous   Step
	Next       Step
	Links      []Link
}

// Build computes the navigation for page given the total record count.
// href renders the target of a link for a page number. Previous from a
// page beyond the last one leads to the last page.
func Build(page, totalCount, pageSize int, href func(page int) string) Nav {
	totalPages := TotalPages(totalCount, pageSize)

	nav := Nav{
		Page:       page,
		TotalPages: totalPages,
		Links:      make([]Link, 0, totalPages),
	}

	nav.Previous = Step{Number: Clamp(page-1, totalPages), Disabled: page <= 1}
	if !nav.Previous.Disabled {
		nav.Previous.Href = href(nav.Previous.Number)
	}

	nav.Next = Step{Number: page + 1, Disabled: page >= totalPages}
	if !nav.Next.Disabled {
		nav.Next.Href = href(page + 1)
	}

	for n := 1; n <= totalPages; n++ {
		nav.Links = append(nav.Links, Link{
			Number: n,
			Href:   href(n),
			Active: n == page,
		})
	}

	return nav
}

// HasPrevious reports whether a previous page exists.
func (n Nav) HasPrevious() bool {
	return !n.Previous.Disabled
}

// HasNext reports whether a next page exists.
func (n Nav) HasNext() bool {
	return !n.Next.Disabled
}
