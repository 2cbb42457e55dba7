package catalog

// presence is one (site, species) pairing inside a week bucket.
type presence struct {
	lat, lon  float64
	speciesID string
}

// Index is the pre-aggregated location+week lookup built once at load time.
// It is immutable after construction and safe for concurrent readers.
type Index struct {
	species map[string]*Species
	byWeek  map[int][]presence
}

// NewIndex builds the presence index over the given species list.
// Sites with out-of-range weeks are skipped.
func NewIndex(list []Species) *Index {
	idx := &Index{
		species: make(map[string]*Species, len(list)),
		byWeek:  make(map[int][]presence),
	}

	for i := range list {
		sp := &list[i]
		idx.species[sp.ID] = sp
		for _, site := range sp.Sites {
			for _, week := range site.Weeks {
				if week < 1 || week > 52 {
					continue
				}
				idx.byWeek[week] = append(idx.byWeek[week], presence{
					lat:       site.Lat,
					lon:       site.Lon,
					speciesID: sp.ID,
				})
			}
		}
	}

	return idx
}

// ByID returns the species record for id, or nil.
func (idx *Index) ByID(id string) *Species {
	return idx.species[id]
}

// All returns every species in the catalog, in map order.
func (idx *Index) All() []*Species {
	result := make([]*Species, 0, len(idx.species))
	for _, sp := range idx.species {
		result = append(result, sp)
	}
	return result
}

// Len returns the number of species in the catalog.
func (idx *Index) Len() int { return len(idx.species) }

// PresentNear collects the ids of species with a site within radiusKm of
// (lat, lon) during the given ISO week. Results are added to out so callers
// can union several weeks without intermediate allocations.
func (idx *Index) PresentNear(lat, lon, radiusKm float64, week int, out map[string]struct{}) {
	for _, p := range idx.byWeek[week] {
		if _, ok := out[p.speciesID]; ok {
			continue
		}
		if DistanceKm(lat, lon, p.lat, p.lon) <= radiusKm {
			out[p.speciesID] = struct{}{}
		}
	}
}
