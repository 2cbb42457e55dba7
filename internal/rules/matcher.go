// Package rules evaluates collection rules against the species catalog:
// pure matchers per parameter variant, parameter validation, and the engine
// that applies matches to a collection.
package rules

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/lifelist/internal/catalog"
	"github.com/dmitrijs2005/lifelist/internal/models"
)

// Match evaluates one rule's parameters against the catalog index and
// returns the set of matching species ids. The switch is exhaustive over
// the closed parameter union; an unknown variant is an error.
func Match(p models.RuleParams, idx *catalog.Index) (map[string]struct{}, error) {
	switch v := p.(type) {
	case models.LocationParams:
		return MatchLocation(v, idx), nil
	case models.DateRangeParams:
		return MatchDateRange(v, idx), nil
	case models.CategoryParams:
		return MatchCategory(v, idx), nil
	case models.RarityParams:
		return MatchRarity(v, idx), nil
	case models.MigrationParams:
		return MatchMigration(v, idx), nil
	default:
		return nil, fmt.Errorf("unsupported rule params %T", p)
	}
}

// MatchLocation queries the presence index for species within RadiusKm of
// the rule's point during each requested week. An empty week list means
// all 52 weeks.
func MatchLocation(p models.LocationParams, idx *catalog.Index) map[string]struct{} {
	weeks := p.ValidWeeks
	if len(weeks) == 0 {
		weeks = allWeeks
	}

	out := make(map[string]struct{})
	for _, week := range weeks {
		idx.PresentNear(p.Lat, p.Lon, p.RadiusKm, week, out)
	}
	return out
}

var allWeeks = func() []int {
	w := make([]int, 52)
	for i := range w {
		w[i] = i + 1
	}
	return w
}()

// MatchDateRange selects species whose presence months intersect the
// calendar months covered by the interval. Year wrap (e.g. Nov to Feb) is
// handled by walking real dates month by month.
func MatchDateRange(p models.DateRangeParams, idx *catalog.Index) map[string]struct{} {
	months := monthsCovered(p.Start, p.End)

	out := make(map[string]struct{})
	for _, sp := range idx.All() {
		for _, m := range sp.Months {
			if _, ok := months[time.Month(m)]; ok {
				out[sp.ID] = struct{}{}
				break
			}
		}
	}
	return out
}

// monthsCovered returns the set of calendar months touched by [start, end].
// The walk is capped at a full year since months repeat after that.
func monthsCovered(start, end time.Time) map[time.Month]struct{} {
	months := make(map[time.Month]struct{})
	if end.Before(start) {
		return months
	}

	cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12 && !cur.After(end); i++ {
		months[cur.Month()] = struct{}{}
		cur = cur.AddDate(0, 1, 0)
	}
	return months
}

// MatchCategory selects species whose family is in the requested set.
func MatchCategory(p models.CategoryParams, idx *catalog.Index) map[string]struct{} {
	want := toSet(p.Categories)

	out := make(map[string]struct{})
	for _, sp := range idx.All() {
		if _, ok := want[sp.Family]; ok {
			out[sp.ID] = struct{}{}
		}
	}
	return out
}

// MatchRarity selects species whose rarity tier is in the requested set.
func MatchRarity(p models.RarityParams, idx *catalog.Index) map[string]struct{} {
	want := make(map[int]struct{}, len(p.Levels))
	for _, l := range p.Levels {
		want[l] = struct{}{}
	}

	out := make(map[string]struct{})
	for _, sp := range idx.All() {
		if _, ok := want[sp.Rarity]; ok {
			out[sp.ID] = struct{}{}
		}
	}
	return out
}

// MatchMigration selects species by migration strategy. When a hemisphere
// is given, species limited to the opposite hemisphere are excluded;
// "both" always matches.
func MatchMigration(p models.MigrationParams, idx *catalog.Index) map[string]struct{} {
	want := toSet(p.Strategies)

	out := make(map[string]struct{})
	for _, sp := range idx.All() {
		if _, ok := want[sp.Migration]; !ok {
			continue
		}
		if p.Hemisphere != "" && sp.Hemisphere != "both" && sp.Hemisphere != p.Hemisphere {
			continue
		}
		out[sp.ID] = struct{}{}
	}
	return out
}

func toSet(values []string) map[string]struct{} {
	s := make(map[string]struct{}, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}
