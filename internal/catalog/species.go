// Package catalog holds the read-mostly species reference data and the
// per-week presence index the rule matcher queries.
package catalog

// Site is a known observation site for a species, with the ISO weeks the
// species is typically present there.
type Site struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Weeks []int   `json:"weeks"`
}

// Species is one reference record. Attributes are immutable after load.
type Species struct {
	ID             string `json:"id"`
	CommonName     string `json:"common_name"`
	ScientificName string `json:"scientific_name"`

	// Family is the family-level category used by category rules.
	Family string `json:"family"`

	// Rarity is a tier from 1 (ubiquitous) to 5 (exceptional).
	Rarity int `json:"rarity"`

	// Migration is the strategy label: resident, short_distance,
	// long_distance, irruptive, nomadic.
	Migration string `json:"migration"`

	// Hemisphere is "north", "south" or "both".
	Hemisphere string `json:"hemisphere"`

	// Months are the calendar months (1..12) the species can be seen at all.
	Months []int `json:"months"`

	// Sites drive the location+week presence index.
	Sites []Site `json:"sites"`
}
