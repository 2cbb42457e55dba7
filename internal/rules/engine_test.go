package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/lifelist/internal/logging"
	"github.com/dmitrijs2005/lifelist/internal/models"
)

// fakeStore implements Store in memory for engine tests.
type fakeStore struct {
	rules map[string][]models.Rule
	items map[string]map[string]struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rules: map[string][]models.Rule{},
		items: map[string]map[string]struct{}{},
	}
}

func (f *fakeStore) ActiveRules(_ context.Context, collectionID string) ([]models.Rule, error) {
	return f.rules[collectionID], nil
}

func (f *fakeStore) ItemSpeciesIDs(_ context.Context, collectionID string) (map[string]struct{}, error) {
	existing := f.items[collectionID]
	out := make(map[string]struct{}, len(existing))
	for id := range existing {
		out[id] = struct{}{}
	}
	return out, nil
}

func (f *fakeStore) AddRuleItems(_ context.Context, collectionID string, speciesIDs []string) (int, error) {
	if f.items[collectionID] == nil {
		f.items[collectionID] = map[string]struct{}{}
	}
	added := 0
	for _, id := range speciesIDs {
		if _, ok := f.items[collectionID][id]; !ok {
			f.items[collectionID][id] = struct{}{}
			added++
		}
	}
	return added, nil
}

func mustRule(t *testing.T, collectionID string, priority int, p models.RuleParams) models.Rule {
	t.Helper()
	typ, raw, err := models.WrapParams(p)
	require.NoError(t, err)
	return models.Rule{
		ID:           "r-" + string(typ),
		CollectionID: collectionID,
		Type:         typ,
		Params:       raw,
		Priority:     priority,
		Active:       true,
	}
}

func TestEngine_Apply_LocationScenario(t *testing.T) {
	store := newFakeStore()
	store.rules["c1"] = []models.Rule{
		mustRule(t, "c1", 10, models.LocationParams{
			Lat: 40.0, Lon: -74.0, RadiusKm: 50, ValidWeeks: []int{10, 11},
		}),
	}

	engine := NewEngine(store, testIndex(), logging.NewNopLogger())

	added, err := engine.Apply(context.Background(), "c1")
	require.NoError(t, err)

	// e1 sits ~20 km away during week 10; e2 is ~200 km away.
	assert.Equal(t, 1, added)
	assert.Contains(t, store.items["c1"], "e1")
	assert.NotContains(t, store.items["c1"], "e2")
}

func TestEngine_Apply_Idempotent(t *testing.T) {
	store := newFakeStore()
	store.rules["c1"] = []models.Rule{
		mustRule(t, "c1", 5, models.RarityParams{Levels: []int{4, 5}}),
	}

	engine := NewEngine(store, testIndex(), logging.NewNopLogger())
	ctx := context.Background()

	first, err := engine.Apply(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 3, first)

	second, err := engine.Apply(ctx, "c1")
	require.NoError(t, err)
	assert.Zero(t, second)
	assert.Len(t, store.items["c1"], 3)
}

func TestEngine_Apply_RulesAreUnioned(t *testing.T) {
	store := newFakeStore()
	store.rules["c1"] = []models.Rule{
		mustRule(t, "c1", 10, models.CategoryParams{Categories: []string{"Turdidae"}}),
		mustRule(t, "c1", 5, models.MigrationParams{Strategies: []string{"irruptive"}}),
	}

	engine := NewEngine(store, testIndex(), logging.NewNopLogger())

	added, err := engine.Apply(context.Background(), "c1")
	require.NoError(t, err)

	// any single matching rule qualifies a species
	assert.Equal(t, 2, added)
	assert.Contains(t, store.items["c1"], "e1")
	assert.Contains(t, store.items["c1"], "e3")
}

func TestEngine_Apply_SkipsExistingMembers(t *testing.T) {
	store := newFakeStore()
	store.items["c1"] = map[string]struct{}{"e1": {}}
	store.rules["c1"] = []models.Rule{
		mustRule(t, "c1", 1, models.CategoryParams{Categories: []string{"Turdidae", "Laridae"}}),
	}

	engine := NewEngine(store, testIndex(), logging.NewNopLogger())

	added, err := engine.Apply(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, added)
}

func TestEngine_Apply_NoRules(t *testing.T) {
	engine := NewEngine(newFakeStore(), testIndex(), logging.NewNopLogger())

	added, err := engine.Apply(context.Background(), "empty")
	require.NoError(t, err)
	assert.Zero(t, added)
}
