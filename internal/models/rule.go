package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// RuleType classifies a rule's predicate kind.
type RuleType string

const (
	RuleTypeLocation  RuleType = "location"
	RuleTypeDateRange RuleType = "date_range"
	RuleTypeCategory  RuleType = "category"
	RuleTypeRarity    RuleType = "rarity"
	RuleTypeMigration RuleType = "migration"
)

// Rule is a declarative predicate attached to a collection. Evaluating it
// yields species to auto-add. Params holds the serialized parameter payload
// matching Type; use DecodeParams to get the typed variant.
type Rule struct {
	ID           string          `json:"id"`
	CollectionID string          `json:"collection_id"`
	Type         RuleType        `json:"rule_type"`
	Params       json.RawMessage `json:"params"`
	Priority     int             `json:"priority"`
	Active       bool            `json:"active"`

	SyncStatus SyncStatus `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// RuleParams is the closed set of rule parameter variants. The rule matcher
// switches over these exhaustively; an unknown type is an error, never a
// silent non-match.
type RuleParams interface {
	GetType() RuleType
}

// LocationParams matches species present within RadiusKm of a point during
// the given ISO weeks. An empty ValidWeeks means all 52 weeks.
type LocationParams struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	RadiusKm   float64 `json:"radius_km"`
	ValidWeeks []int   `json:"valid_weeks,omitempty"`
}

func (LocationParams) GetType() RuleType { return RuleTypeLocation }

// DateRangeParams matches species whose presence months intersect the
// calendar months covered by [Start, End].
type DateRangeParams struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (DateRangeParams) GetType() RuleType { return RuleTypeDateRange }

// CategoryParams matches species by family category.
type CategoryParams struct {
	Categories []string `json:"categories"`
}

func (CategoryParams) GetType() RuleType { return RuleTypeCategory }

// RarityParams matches species by rarity tier.
type RarityParams struct {
	Levels []int `json:"levels"`
}

func (RarityParams) GetType() RuleType { return RuleTypeRarity }

// MigrationParams matches species by migration strategy, optionally
// restricted to one hemisphere.
type MigrationParams struct {
	Strategies []string `json:"strategies"`
	Hemisphere string   `json:"hemisphere,omitempty"`
}

func (MigrationParams) GetType() RuleType { return RuleTypeMigration }

// WrapParams serializes typed parameters into the payload stored on a Rule.
func WrapParams(p RuleParams) (RuleType, json.RawMessage, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", nil, err
	}
	return p.GetType(), b, nil
}

// DecodeParams deserializes the rule's payload into its typed variant.
func (r *Rule) DecodeParams() (RuleParams, error) {
	switch r.Type {
	case RuleTypeLocation:
		var v LocationParams
		if err := json.Unmarshal(r.Params, &v); err != nil {
			return nil, err
		}
		return v, nil
	case RuleTypeDateRange:
		var v DateRangeParams
		if err := json.Unmarshal(r.Params, &v); err != nil {
			return nil, err
		}
		return v, nil
	case RuleTypeCategory:
		var v CategoryParams
		if err := json.Unmarshal(r.Params, &v); err != nil {
			return nil, err
		}
		return v, nil
	case RuleTypeRarity:
		var v RarityParams
		if err := json.Unmarshal(r.Params, &v); err != nil {
			return nil, err
		}
		return v, nil
	case RuleTypeMigration:
		var v MigrationParams
		if err := json.Unmarshal(r.Params, &v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown rule type %q", r.Type)
	}
}
