package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/lifelist/internal/logging"
	"github.com/dmitrijs2005/lifelist/internal/models"
	"github.com/dmitrijs2005/lifelist/internal/shared"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	db, err := OpenDatabase(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s, err := New(ctx, db, logging.NewNopLogger())
	require.NoError(t, err)
	return s
}

func login(t *testing.T, s *Store, user string) {
	t.Helper()
	require.NoError(t, s.SetActiveUser(context.Background(), user))
}

func makeCollection(t *testing.T, s *Store, title string) *models.Collection {
	t.Helper()
	c := &models.Collection{Title: title}
	require.NoError(t, s.CreateCollection(context.Background(), c))
	return c
}

func makeItem(t *testing.T, s *Store, collectionID, speciesID string) *models.Item {
	t.Helper()
	item := &models.Item{CollectionID: collectionID, SpeciesID: speciesID}
	require.NoError(t, s.CreateItem(context.Background(), item))
	return item
}

func TestGuestRecordsAreNotQueued(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	c := makeCollection(t, s, "Backyard")
	assert.Equal(t, models.SyncPendingOwner, c.SyncStatus)

	item := makeItem(t, s, c.ID, "sp-robin")
	assert.Equal(t, models.SyncPendingOwner, item.SyncStatus)

	n, err := s.QueueLen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestOwnedMutationsQueueInTheSameTransaction(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	login(t, s, "u1")

	c := makeCollection(t, s, "Spring trip")
	assert.Equal(t, models.SyncPendingCreate, c.SyncStatus)
	assert.Equal(t, "u1", c.OwnerID)

	makeItem(t, s, c.ID, "sp-robin")

	n, err := s.QueueLen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	entries, err := s.DueEntries(ctx, models.KindCollection, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.OpCreate, entries[0].Op)

	payload, err := entries[0].DecodePayload()
	require.NoError(t, err)
	assert.Equal(t, "u1", payload.OwnerID)
}

func TestToggleItemRefreshesAggregates(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	login(t, s, "u1")

	c := makeCollection(t, s, "Year list")
	item := makeItem(t, s, c.ID, "sp-eagle")

	toggled, err := s.ToggleItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemCompleted, toggled.Status)
	require.NotNil(t, toggled.CompletedAt)

	got, err := s.GetCollection(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ItemCount)
	assert.Equal(t, 1, got.CompletedCount)

	toggled, err = s.ToggleItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemPending, toggled.Status)
	assert.Nil(t, toggled.CompletedAt)

	got, err = s.GetCollection(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CompletedCount)
}

func TestDuplicateSpeciesRejected(t *testing.T) {
	s := setupStore(t)
	login(t, s, "u1")

	c := makeCollection(t, s, "Year list")
	makeItem(t, s, c.ID, "sp-eagle")

	err := s.CreateItem(context.Background(), &models.Item{CollectionID: c.ID, SpeciesID: "sp-eagle"})
	assert.ErrorIs(t, err, shared.ErrDuplicateEntry)
}

func TestDeleteNeverPushedCancelsQueuedCreate(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	login(t, s, "u1")

	c := makeCollection(t, s, "Scratch")
	require.NoError(t, s.DeleteCollection(ctx, c.ID))

	_, err := s.GetCollection(ctx, c.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	n, err := s.QueueLen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDeleteSyncedCollectionTombstonesAndQueuesDelete(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	login(t, s, "u1")

	c := makeCollection(t, s, "Spring trip")

	entries, err := s.DueEntries(ctx, models.KindCollection, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NoError(t, s.MarkSynced(ctx, &entries[0], time.Time{}))

	require.NoError(t, s.DeleteCollection(ctx, c.ID))

	_, err = s.GetCollection(ctx, c.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	entries, err = s.DueEntries(ctx, models.KindCollection, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.OpDelete, entries[0].Op)

	// the remote delete succeeds, the tombstone goes away
	require.NoError(t, s.MarkSynced(ctx, &entries[0], time.Time{}))
	n, err := s.QueueLen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMarkSyncedLeavesSupersededEntry(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	login(t, s, "u1")

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	c := makeCollection(t, s, "Spring trip")

	entries, err := s.DueEntries(ctx, models.KindCollection, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	inflight := entries[0]

	// a local edit lands while the push is in flight
	c.Title = "Spring trip, extended"
	require.NoError(t, s.UpdateCollection(ctx, c))

	require.NoError(t, s.MarkSynced(ctx, &inflight, time.Time{}))

	entries, err = s.DueEntries(ctx, models.KindCollection, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1, "superseded entry must survive the ack")

	got, err := s.GetCollection(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.SyncStatus.Pending())
}

func TestMarkSyncedSettlesRecord(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	login(t, s, "u1")

	c := makeCollection(t, s, "Spring trip")

	entries, err := s.DueEntries(ctx, models.KindCollection, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	serverTime := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.MarkSynced(ctx, &entries[0], serverTime))

	got, err := s.GetCollection(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncSynced, got.SyncStatus)
	assert.Equal(t, serverTime, got.UpdatedAt.UTC())
}

func TestApplyRemoteLastWriteWins(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	login(t, s, "u1")

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	c := makeCollection(t, s, "Local title")

	// remote copy older than the local pending edit: local survives
	older := *c
	older.Title = "Stale remote title"
	older.UpdatedAt = base.Add(-time.Hour)
	raw, err := json.Marshal(&older)
	require.NoError(t, err)

	applied, err := s.ApplyRemote(ctx, models.KindCollection, models.OpUpdate, raw)
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := s.GetCollection(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Local title", got.Title)
	assert.True(t, got.SyncStatus.Pending())

	// remote copy newer: it overwrites and clears the queued push
	newer := *c
	newer.Title = "Fresh remote title"
	newer.UpdatedAt = base.Add(time.Hour)
	raw, err = json.Marshal(&newer)
	require.NoError(t, err)

	applied, err = s.ApplyRemote(ctx, models.KindCollection, models.OpUpdate, raw)
	require.NoError(t, err)
	assert.True(t, applied)

	got, err = s.GetCollection(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fresh remote title", got.Title)
	assert.Equal(t, models.SyncSynced, got.SyncStatus)

	n, err := s.QueueLen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestApplyRemoteInsertsUnknownRecord(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	login(t, s, "u1")

	remote := models.Collection{
		ID:        "col-remote",
		OwnerID:   "u1",
		Kind:      models.KindCustom,
		Title:     "Created elsewhere",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(&remote)
	require.NoError(t, err)

	applied, err := s.ApplyRemote(ctx, models.KindCollection, models.OpCreate, raw)
	require.NoError(t, err)
	assert.True(t, applied)

	got, err := s.GetCollection(ctx, "col-remote")
	require.NoError(t, err)
	assert.Equal(t, models.SyncSynced, got.SyncStatus)
}

func TestAdoptGuestData(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	c := makeCollection(t, s, "Guest list")
	item := makeItem(t, s, c.ID, "sp-robin")

	login(t, s, "u7")
	adopted, err := s.AdoptGuestData(ctx, "u7")
	require.NoError(t, err)
	assert.Equal(t, 1, adopted)

	got, err := s.GetCollection(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "u7", got.OwnerID)
	assert.Equal(t, models.SyncPendingCreate, got.SyncStatus)

	n, err := s.QueueLen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "collection and item queued for upload")

	entries, err := s.DueEntries(ctx, models.KindItem, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, item.ID, entries[0].RecordID)
	payload, err := entries[0].DecodePayload()
	require.NoError(t, err)
	assert.Equal(t, "u7", payload.OwnerID)
}

func TestVisibilityScoping(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	login(t, s, "alice")
	owned := makeCollection(t, s, "Alice's list")

	login(t, s, "")
	_, err := s.GetCollection(ctx, owned.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	cols, err := s.Collections(ctx)
	require.NoError(t, err)
	assert.Empty(t, cols)

	login(t, s, "alice")
	cols, err = s.Collections(ctx)
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, owned.ID, cols[0].ID)
}

func TestSharedCollectionHiddenFromGuest(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	c := &models.Collection{Title: "Club sightings", Kind: models.KindShared}
	require.NoError(t, s.CreateCollection(ctx, c))

	cols, err := s.Collections(ctx)
	require.NoError(t, err)
	assert.Empty(t, cols, "listing and lookup agree while logged out")

	_, err = s.GetCollection(ctx, c.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	login(t, s, "alice")
	cols, err = s.Collections(ctx)
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, c.ID, cols[0].ID)
}

func TestCreateRuleValidatesParams(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	login(t, s, "u1")

	c := makeCollection(t, s, "Trip")

	_, err := s.CreateRule(ctx, c.ID, models.LocationParams{Lat: 52.0, Lon: 4.5, RadiusKm: 900}, 1)
	assert.ErrorIs(t, err, shared.ErrRuleValidation)

	rule, err := s.CreateRule(ctx, c.ID, models.LocationParams{Lat: 52.0, Lon: 4.5, RadiusKm: 50}, 1)
	require.NoError(t, err)
	assert.True(t, rule.Active)
	assert.Equal(t, models.RuleTypeLocation, rule.Type)
}

func TestAllItemsPrefersCompletedSighting(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	login(t, s, "u1")

	a := makeCollection(t, s, "Trip A")
	b := makeCollection(t, s, "Trip B")

	makeItem(t, s, a.ID, "sp-heron")
	inB := makeItem(t, s, b.ID, "sp-heron")
	_, err := s.ToggleItem(ctx, inB.ID)
	require.NoError(t, err)

	all, err := s.AllItems(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, models.ItemCompleted, all[0].Status)
	assert.Equal(t, inB.ID, all[0].ID)
}
