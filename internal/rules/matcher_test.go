package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/lifelist/internal/catalog"
	"github.com/dmitrijs2005/lifelist/internal/models"
)

func testIndex() *catalog.Index {
	return catalog.NewIndex([]catalog.Species{
		{
			ID:         "e1",
			Family:     "Turdidae",
			Rarity:     1,
			Migration:  "resident",
			Hemisphere: "north",
			Months:     []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
			Sites: []catalog.Site{
				// ~20 km from (40.0, -74.0)
				{Lat: 40.0, Lon: -73.765, Weeks: []int{10, 11}},
			},
		},
		{
			ID:         "e2",
			Family:     "Laridae",
			Rarity:     4,
			Migration:  "long_distance",
			Hemisphere: "both",
			Months:     []int{5, 6, 7, 8},
			Sites: []catalog.Site{
				// ~200 km away
				{Lat: 41.5, Lon: -72.3, Weeks: []int{10, 11}},
			},
		},
		{
			ID:         "e3",
			Family:     "Strigidae",
			Rarity:     5,
			Migration:  "irruptive",
			Hemisphere: "north",
			Months:     []int{11, 12, 1, 2},
			Sites: []catalog.Site{
				{Lat: 43.6, Lon: -79.4, Weeks: []int{50, 51, 52, 1, 2}},
			},
		},
		{
			ID:         "e4",
			Family:     "Spheniscidae",
			Rarity:     5,
			Migration:  "resident",
			Hemisphere: "south",
			Months:     []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
			Sites: []catalog.Site{
				{Lat: -77.5, Lon: 166.1, Weeks: []int{20}},
			},
		},
	})
}

func TestMatchLocation_RadiusAndWeeks(t *testing.T) {
	idx := testIndex()

	got := MatchLocation(models.LocationParams{
		Lat: 40.0, Lon: -74.0, RadiusKm: 50, ValidWeeks: []int{10, 11},
	}, idx)

	assert.Contains(t, got, "e1")
	assert.NotContains(t, got, "e2")
	assert.NotContains(t, got, "e3")
}

func TestMatchLocation_AllWeeksWhenUnspecified(t *testing.T) {
	idx := testIndex()

	got := MatchLocation(models.LocationParams{
		Lat: 43.6, Lon: -79.4, RadiusKm: 10,
	}, idx)

	// e3 is only present in winter weeks; no week filter means all weeks.
	assert.Contains(t, got, "e3")
}

func TestMatchDateRange(t *testing.T) {
	idx := testIndex()

	tests := []struct {
		name       string
		start, end time.Time
		want       []string
		exclude    []string
	}{
		{
			name:    "summer interval",
			start:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			end:     time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC),
			want:    []string{"e1", "e2", "e4"},
			exclude: []string{"e3"},
		},
		{
			name:    "year wrap nov to feb",
			start:   time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC),
			end:     time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC),
			want:    []string{"e1", "e3", "e4"},
			exclude: []string{"e2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchDateRange(models.DateRangeParams{Start: tt.start, End: tt.end}, idx)
			for _, id := range tt.want {
				assert.Contains(t, got, id)
			}
			for _, id := range tt.exclude {
				assert.NotContains(t, got, id)
			}
		})
	}
}

func TestMatchCategory(t *testing.T) {
	idx := testIndex()

	got := MatchCategory(models.CategoryParams{Categories: []string{"Turdidae", "Laridae"}}, idx)

	assert.Len(t, got, 2)
	assert.Contains(t, got, "e1")
	assert.Contains(t, got, "e2")
}

func TestMatchRarity(t *testing.T) {
	idx := testIndex()

	got := MatchRarity(models.RarityParams{Levels: []int{4, 5}}, idx)

	assert.Len(t, got, 3)
	assert.NotContains(t, got, "e1")
}

func TestMatchMigration(t *testing.T) {
	idx := testIndex()

	t.Run("strategy only", func(t *testing.T) {
		got := MatchMigration(models.MigrationParams{Strategies: []string{"resident"}}, idx)
		assert.Contains(t, got, "e1")
		assert.Contains(t, got, "e4")
	})

	t.Run("hemisphere filter", func(t *testing.T) {
		got := MatchMigration(models.MigrationParams{
			Strategies: []string{"resident", "long_distance"},
			Hemisphere: "north",
		}, idx)
		assert.Contains(t, got, "e1")
		assert.Contains(t, got, "e2") // "both" matches any hemisphere
		assert.NotContains(t, got, "e4")
	})
}

func TestMatch_UnknownParamsRejected(t *testing.T) {
	type bogus struct{ models.RuleParams }

	_, err := Match(bogus{}, testIndex())
	require.Error(t, err)
}
