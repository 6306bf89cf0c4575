// Package pagination derives page navigation from a total record count.
//
// The total number of pages is the ceiling of total/pageSize. Previous is
// disabled on the first page and Next on the last one, so the displayed
// page stays within [1, TotalPages]:
//
//	nav := pagination.Build(2, 25, 10, func(n int) string {
//		return fmt.Sprintf("/students?page=%d", n)
//	})
//	// nav.TotalPages == 3, nav.Links[1].Active == true
package pagination
