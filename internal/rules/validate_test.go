package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrijs2005/lifelist/internal/models"
	"github.com/dmitrijs2005/lifelist/internal/shared"
)

func TestValidate(t *testing.T) {
	day := 24 * time.Hour
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		params  models.RuleParams
		wantErr bool
	}{
		{"valid location", models.LocationParams{Lat: 40, Lon: -74, RadiusKm: 50}, false},
		{"zero radius", models.LocationParams{Lat: 40, Lon: -74, RadiusKm: 0}, true},
		{"radius too large", models.LocationParams{Lat: 40, Lon: -74, RadiusKm: 501}, true},
		{"radius at cap", models.LocationParams{Lat: 40, Lon: -74, RadiusKm: 500}, false},
		{"latitude out of range", models.LocationParams{Lat: 91, Lon: 0, RadiusKm: 10}, true},
		{"longitude out of range", models.LocationParams{Lat: 0, Lon: -181, RadiusKm: 10}, true},
		{"week out of range", models.LocationParams{Lat: 0, Lon: 0, RadiusKm: 10, ValidWeeks: []int{53}}, true},
		{"valid date range", models.DateRangeParams{Start: now, End: now.Add(day)}, false},
		{"end equals start", models.DateRangeParams{Start: now, End: now}, true},
		{"end before start", models.DateRangeParams{Start: now, End: now.Add(-day)}, true},
		{"valid categories", models.CategoryParams{Categories: []string{"Turdidae"}}, false},
		{"empty categories", models.CategoryParams{Categories: nil}, true},
		{"valid rarity", models.RarityParams{Levels: []int{1, 5}}, false},
		{"empty rarity", models.RarityParams{Levels: nil}, true},
		{"rarity below range", models.RarityParams{Levels: []int{0}}, true},
		{"rarity above range", models.RarityParams{Levels: []int{6}}, true},
		{"valid migration", models.MigrationParams{Strategies: []string{"resident"}}, false},
		{"empty migration", models.MigrationParams{Strategies: nil}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.params)
			if tt.wantErr {
				assert.ErrorIs(t, err, shared.ErrRuleValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
