package domain

// SortOrder enumerates the supported list orderings.
type SortOrder string

const (
	SortNone           SortOrder = ""
	SortGDPDesc        SortOrder = "gdp_desc"
	SortGDPAsc         SortOrder = "gdp_asc"
	SortPopulationDesc SortOrder = "population_desc"
	SortPopulationAsc  SortOrder = "population_asc"
)

// ParseSortOrder maps a query value to a SortOrder; unknown values mean no ordering.
func ParseSortOrder(v string) SortOrder {
	switch SortOrder(v) {
	case SortGDPDesc, SortGDPAsc, SortPopulationDesc, SortPopulationAsc:
		return SortOrder(v)
	default:
		return SortNone
	}
}

// CountryFilter narrows a country listing.
type CountryFilter struct {
	Region   string
	Currency string
	Sort     SortOrder
}
