package pagination

import (
	"fmt"
	"net/url"
	"testing"
)

func href(n int) string {
	return fmt.Sprintf("/students?page=%d", n)
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total, size, want int
	}{
		{25, 10, 3},
		{20, 10, 2},
		{21, 10, 3},
		{1, 10, 1},
		{0, 10, 0},
		{10, 0, 0},
		{-5, 10, 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.total, tt.size), func(t *testing.T) {
			if got := TotalPages(tt.total, tt.size); got != tt.want {
				t.Errorf("TotalPages(%d, %d) = %d, want %d", tt.total, tt.size, got, tt.want)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		page, total, want int
	}{
		{0, 3, 1},
		{2, 3, 2},
		{7, 3, 3},
		{5, 0, 1},
	}

	for _, tt := range tests {
		if got := Clamp(tt.page, tt.total); got != tt.want {
			t.Errorf("Clamp(%d, %d) = %d, want %d", tt.page, tt.total, got, tt.want)
		}
	}
}

func TestPageFromQuery(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 1},
		{"page=3", 3},
		{"page=0", 1},
		{"page=-2", 1},
		{"page=abc", 1},
		{"page=2&page=5", 2},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			values, _ := url.ParseQuery(tt.query)
			if got := PageFromQuery(values, "page"); got != tt.want {
				t.Errorf("PageFromQuery(%q) = %d, want %d", tt.query, got, tt.want)
			}
		})
	}
}

func TestBuild_Bounds(t *testing.T) {
	tests := []struct {
		name         string
		page         int
		wantPrevious bool
		wantNext     bool
	}{
		{name: "first page", page: 1, wantPrevious: false, wantNext: true},
		{name: "middle page", page: 2, wantPrevious: true, wantNext: true},
		{name: "last page", page: 3, wantPrevious: true, wantNext: false},
		{name: "beyond last page", page: 4, wantPrevious: true, wantNext: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav := Build(tt.page, 25, 10, href)

			if nav.TotalPages != 3 {
				t.Fatalf("TotalPages = %d, want 3", nav.TotalPages)
			}
			if nav.HasPrevious() != tt.wantPrevious {
				t.Errorf("HasPrevious() = %v, want %v", nav.HasPrevious(), tt.wantPrevious)
			}
			if nav.HasNext() != tt.wantNext {
				t.Errorf("HasNext() = %v, want %v", nav.HasNext(), tt.wantNext)
			}
			if nav.Previous.Disabled && nav.Previous.Href != "" {
				t.Error("disabled Previous should have no href")
			}
			if nav.Next.Disabled && nav.Next.Href != "" {
				t.Error("disabled Next should have no href")
			}
		})
	}
}

func TestBuild_Links(t *testing.T) {
	nav := Build(2, 25, 10, href)

	if len(nav.Links) != 3 {
		t.Fatalf("len(Links) = %d, want 3", len(nav.Links))
	}
	for i, link := range nav.Links {
		if link.Number != i+1 {
			t.Errorf("Links[%d].Number = %d", i, link.Number)
		}
		if link.Href != href(i+1) {
			t.Errorf("Links[%d].Href = %q", i, link.Href)
		}
		if link.Active != (i+1 == 2) {
			t.Errorf("Links[%d].Active = %v", i, link.Active)
		}
	}
	if nav.Previous.Href != href(1) || nav.Next.Href != href(3) {
		t.Errorf("Previous/Next = %q/%q", nav.Previous.Href, nav.Next.Href)
	}
}

func TestBuild_Empty(t *testing.T) {
	nav := Build(1, 0, 10, href)

	if nav.TotalPages != 0 || len(nav.Links) != 0 {
		t.Errorf("TotalPages = %d, Links = %d, want 0/0", nav.TotalPages, len(nav.Links))
	}
	if nav.HasPrevious() || nav.HasNext() {
		t.Error("both steps should be disabled without records")
	}
}

func TestBuild_BeyondLastPage(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		total      int
		wantTarget int
	}{
		{name: "past the end", page: 7, total: 25, wantTarget: 3},
		{name: "just past the end", page: 4, total: 25, wantTarget: 3},
		{name: "no records", page: 5, total: 0, wantTarget: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav := Build(tt.page, tt.total, 10, href)

			if nav.Previous.Number != tt.wantTarget || nav.Previous.Href != href(tt.wantTarget) {
				t.Errorf("Previous = %d %q, want %d", nav.Previous.Number, nav.Previous.Href, tt.wantTarget)
			}
			if nav.HasNext() {
				t.Error("Next should be disabled beyond the last page")
			}
		})
	}
}
