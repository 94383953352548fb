package models

// FragmentRole labels a sub-fragment of a listing block by what it is expected to contain.
type FragmentRole string

const (
	RoleName     FragmentRole = "name"
	RoleAddress  FragmentRole = "address"
	RolePricing  FragmentRole = "pricing"
	RoleUnitType FragmentRole = "unit-type"
	RoleBeds     FragmentRole = "beds"
	RolePrice    FragmentRole = "price"
)

// RawListingBlock is one scraped listing prior to structuring.
// Ref is an opaque page handle, only ever passed back to the accessor that produced it.
type RawListingBlock struct {
	FullText  string
	Fragments map[FragmentRole][]string
	Ref       any
}

// Location is the city/province a listing page was scraped for.
type Location struct {
	City  string `yaml:"city" json:"city"`
	State string `yaml:"state" json:"state"`
}
