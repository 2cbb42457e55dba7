package rules

import (
	"fmt"

	"github.com/dmitrijs2005/lifelist/internal/models"
	"github.com/dmitrijs2005/lifelist/internal/shared"
)

const (
	maxRadiusKm = 500.0
	minRarity   = 1
	maxRarity   = 5
)

// Validate checks rule parameters before they are persisted. A rule that
// fails validation is rejected and never stored; evaluation assumes
// parameters are already valid.
func Validate(p models.RuleParams) error {
	switch v := p.(type) {
	case models.LocationParams:
		if v.RadiusKm <= 0 || v.RadiusKm > maxRadiusKm {
			return fmt.Errorf("%w: radius must be in (0, %v] km, got %v", shared.ErrRuleValidation, maxRadiusKm, v.RadiusKm)
		}
		if v.Lat < -90 || v.Lat > 90 {
			return fmt.Errorf("%w: latitude %v out of range", shared.ErrRuleValidation, v.Lat)
		}
		if v.Lon < -180 || v.Lon > 180 {
			return fmt.Errorf("%w: longitude %v out of range", shared.ErrRuleValidation, v.Lon)
		}
		for _, w := range v.ValidWeeks {
			if w < 1 || w > 52 {
				return fmt.Errorf("%w: week %d out of range", shared.ErrRuleValidation, w)
			}
		}
		return nil

	case models.DateRangeParams:
		if !v.End.After(v.Start) {
			return fmt.Errorf("%w: end must be after start", shared.ErrRuleValidation)
		}
		return nil

	case models.CategoryParams:
		if len(v.Categories) == 0 {
			return fmt.Errorf("%w: categories must not be empty", shared.ErrRuleValidation)
		}
		return nil

	case models.RarityParams:
		if len(v.Levels) == 0 {
			return fmt.Errorf("%w: rarity levels must not be empty", shared.ErrRuleValidation)
		}
		for _, l := range v.Levels {
			if l < minRarity || l > maxRarity {
				return fmt.Errorf("%w: rarity level %d out of range [%d, %d]", shared.ErrRuleValidation, l, minRarity, maxRarity)
			}
		}
		return nil

	case models.MigrationParams:
		if len(v.Strategies) == 0 {
			return fmt.Errorf("%w: strategies must not be empty", shared.ErrRuleValidation)
		}
		return nil

	default:
		return fmt.Errorf("%w: unsupported rule params %T", shared.ErrRuleValidation, p)
	}
}
