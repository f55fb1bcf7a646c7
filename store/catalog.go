package store

// Category is a top-level service grouping (spec.md §3), e.g. "Cleaning".
type Category struct {
	ID          uint64
	Name        string
	Slug        string
	Description string
	Active      bool
}

// Subcategory narrows a Category, e.g. "Deep Cleaning" under "Cleaning".
type Subcategory struct {
	ID          uint64
	CategoryID  uint64
	Name        string
	Slug        string
	Description string
	Active      bool
}

// RateCard is one priced, serviceable offering under a Subcategory.
type RateCard struct {
	ID            uint64
	SubcategoryID uint64
	ProviderID    uint64
	Name          string
	Price         Money
	DurationMins  int
	Active        bool
}

// ServiceablePincode records a provider's operating area.
type ServiceablePincode struct {
	ProviderID uint64
	Pincode    string
}

// CatalogSearch is the filter set for searching rate cards (spec.md §4.8),
// returning up to 20 results ordered by ascending price.
type CatalogSearch struct {
	Query         string
	CategoryID    *uint64
	SubcategoryID *uint64
	Pincode       *string
	MinPrice      *Money
	MaxPrice      *Money
}

// FindSubcategories selects subcategories, optionally scoped to a category.
type FindSubcategories struct {
	CategoryID *uint64
	ActiveOnly bool
}

// FindRateCards selects rate cards under a subcategory.
type FindRateCards struct {
	SubcategoryID uint64
	ActiveOnly    bool
}
