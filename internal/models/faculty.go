package models

// Faculty is a directory entry for mentors, HODs and teaching staff.
type Faculty struct {
	ID          string `db:"id" json:"id"`
	FullName    string `db:"full_name" json:"fullName"`
	Designation string `db:"designation" json:"designation"`
	Department  string `db:"department" json:"department"`
	Email       string `db:"email" json:"email"`
	Phone       string `db:"phone" json:"phone,omitempty"`
	Cabin       string `db:"cabin" json:"cabin,omitempty"`
	Active      bool   `db:"active" json:"active"`
}

// FacultyFilter captures directory search criteria.
type FacultyFilter struct {
	Search     string
	Department string
	Active     *bool
	Page       int
	PageSize   int
}
