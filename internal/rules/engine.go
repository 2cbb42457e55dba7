package rules

import (
	"context"
	"fmt"
	"sort"

	"github.com/dmitrijs2005/lifelist/internal/catalog"
	"github.com/dmitrijs2005/lifelist/internal/logging"
	"github.com/dmitrijs2005/lifelist/internal/models"
)

// Store is the slice of the domain store the engine needs. Matching runs
// against the catalog index without holding any store locks; the store is
// touched only to read rules/membership and to batch-insert new items.
type Store interface {
	// ActiveRules returns the collection's active rules, highest priority first.
	ActiveRules(ctx context.Context, collectionID string) ([]models.Rule, error)

	// ItemSpeciesIDs returns the species already present in the collection.
	ItemSpeciesIDs(ctx context.Context, collectionID string) (map[string]struct{}, error)

	// AddRuleItems inserts pending items for the given species, skipping any
	// that already exist, and returns the number actually added.
	AddRuleItems(ctx context.Context, collectionID string, speciesIDs []string) (int, error)
}

// Engine applies a collection's rules: evaluate each active rule, union the
// matches (rules are OR'd), and insert items for species not yet tracked.
type Engine struct {
	store Store
	idx   *catalog.Index
	log   logging.Logger
}

func NewEngine(store Store, idx *catalog.Index, log logging.Logger) *Engine {
	return &Engine{store: store, idx: idx, log: log}
}

// Apply runs every active rule of the collection and inserts items for the
// matched species that are not already members. Idempotent: a second run
// with unchanged rules and catalog adds nothing.
func (e *Engine) Apply(ctx context.Context, collectionID string) (int, error) {
	ruleList, err := e.store.ActiveRules(ctx, collectionID)
	if err != nil {
		return 0, fmt.Errorf("fetching rules: %w", err)
	}
	if len(ruleList) == 0 {
		return 0, nil
	}

	union := make(map[string]struct{})
	for _, rule := range ruleList {
		params, err := rule.DecodeParams()
		if err != nil {
			return 0, fmt.Errorf("rule %s: %w", rule.ID, err)
		}

		matched, err := Match(params, e.idx)
		if err != nil {
			return 0, fmt.Errorf("rule %s: %w", rule.ID, err)
		}

		e.log.Debug(ctx, "rule evaluated", "rule", rule.ID, "type", rule.Type, "matched", len(matched))
		for id := range matched {
			union[id] = struct{}{}
		}
	}

	existing, err := e.store.ItemSpeciesIDs(ctx, collectionID)
	if err != nil {
		return 0, fmt.Errorf("fetching membership: %w", err)
	}

	missing := make([]string, 0, len(union))
	for id := range union {
		if _, ok := existing[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}
	// deterministic insert order
	sort.Strings(missing)

	added, err := e.store.AddRuleItems(ctx, collectionID, missing)
	if err != nil {
		return 0, fmt.Errorf("inserting items: %w", err)
	}

	e.log.Info(ctx, "rules applied", "collection", collectionID, "candidates", len(union), "added", added)
	return added, nil
}
