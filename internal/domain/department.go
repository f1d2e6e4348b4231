package domain

import "time"

// Department is a catalog category referenced by templates. Department CRUD
// lives outside this engine; only lookups happen here.
type Department struct {
	ID        string
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
