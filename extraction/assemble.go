package extraction

import (
	"time"

	"rent_scrooper/models"
)

// Assemble stamps one record per pair. A listing without a resolvable name yields nothing.
func Assemble(name, address string, loc models.Location, pairs []ValidatedPair, now time.Time) []models.ListingRecord {
	if name == models.UnknownName || len(pairs) == 0 {
		return nil
	}
	month := now.Format("January")
	clock := now.Format("15:04:05")
	out := make([]models.ListingRecord, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, models.ListingRecord{
			PropertyName:    name,
			PropertyAddress: address,
			StateName:       loc.State,
			CityName:        loc.City,
			BedType:         p.Bed,
			Rent:            p.Price,
			MonthUpdatedOn:  month,
			Year:            now.Year(),
			Time:            clock,
		})
	}
	return out
}
