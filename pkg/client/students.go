package client

// TotalCountHeader carries the number of records matching a list request.
const TotalCountHeader = "X-Total-Count"

// Student is a record of the students collection.
type Student struct {
	ID         int    `json:"id" validate:"required,gt=0"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name"`
	Email      string `json:"email" validate:"omitempty,email"`
	Gender     string `json:"gender,omitempty"`
	Country    string `json:"country,omitempty"`
	Avatar     string `json:"avatar" validate:"omitempty,url"`
	BtcAddress string `json:"btc_address,omitempty"`
}

// StudentsPage is one page of the students collection.
type StudentsPage struct {
	Students []Student `json:"students"`

	// TotalCount is the number of students across all pages
	TotalCount int `json:"total_count"`

	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// ListOptions selects a page of a collection.
type ListOptions struct {
	Page  int `url:"_page,omitempty"`
	Limit int `url:"_limit,omitempty"`
}
