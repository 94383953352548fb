package models

import "strconv"

// Placeholders for fields the extractor could not resolve.
const (
	UnknownName     = "Unknown Name"
	AddressNotFound = "Address not found"
	CallForDetails  = "Call for Details"
	CallForPrice    = "Call for Price"
	NotAvailable    = "Not available"
	ExtractionError = "Error"
)

// RecordColumns is the column order of the tabular output. Downstream reports key on these names.
var RecordColumns = []string{
	"fld_property_name",
	"fld_property_address",
	"fld_state_name",
	"fld_city_name",
	"fld_bed_type",
	"fld_rent",
	"fld_month_updated_on",
	"fld_year",
	"fld_time",
}

// ListingRecord is one (bed type, rent) row for a property.
type ListingRecord struct {
	PropertyName    string `json:"fld_property_name" db:"fld_property_name"`
	PropertyAddress string `json:"fld_property_address" db:"fld_property_address"`
	StateName       string `json:"fld_state_name" db:"fld_state_name"`
	CityName        string `json:"fld_city_name" db:"fld_city_name"`
	BedType         string `json:"fld_bed_type" db:"fld_bed_type"`
	Rent            string `json:"fld_rent" db:"fld_rent"`
	MonthUpdatedOn  string `json:"fld_month_updated_on" db:"fld_month_updated_on"`
	Year            int    `json:"fld_year" db:"fld_year"`
	Time            string `json:"fld_time" db:"fld_time"`
}

// Row returns the record's values in RecordColumns order.
func (r ListingRecord) Row() []string {
	return []string{
		r.PropertyName,
		r.PropertyAddress,
		r.StateName,
		r.CityName,
		r.BedType,
		r.Rent,
		r.MonthUpdatedOn,
		strconv.Itoa(r.Year),
		r.Time,
	}
}
