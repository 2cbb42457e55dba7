// Package models defines the local domain records synced with the backend:
// collections, items, rules and photos, plus their sync bookkeeping.
//
// The JSON tags are the wire shape: queue payload snapshots, sync agent
// request bodies and realtime event records all use it. SyncStatus is local
// bookkeeping and never goes over the wire.
package models

import "time"

// SyncStatus marks a record's reconciliation state with the remote store.
type SyncStatus string

const (
	// SyncPendingCreate means the record exists locally but was never pushed.
	SyncPendingCreate SyncStatus = "pending_create"
	// SyncPendingUpdate means the record was pushed before and has local edits.
	SyncPendingUpdate SyncStatus = "pending_update"
	// SyncPendingDelete means the record is soft-deleted locally and the
	// deletion has not reached the server yet.
	SyncPendingDelete SyncStatus = "pending_delete"
	// SyncPendingOwner means the record belongs to a guest session and must
	// not be pushed until it is adopted by an authenticated user.
	SyncPendingOwner SyncStatus = "pending_owner"
	// SyncSynced means local and remote state agree.
	SyncSynced SyncStatus = "synced"
)

// Pending reports whether the record still has something to push.
func (s SyncStatus) Pending() bool { return s != SyncSynced }

// CollectionKind classifies a collection's sharing semantics.
type CollectionKind string

const (
	KindPersonal CollectionKind = "personal"
	KindCustom   CollectionKind = "custom"
	KindShared   CollectionKind = "shared"
)

// Collection is a named grouping of items, e.g. a trip list or a year list.
//
// OwnerID is empty for guest-local collections; such collections are never
// pushed to the server until adopted (see SyncPendingOwner).
type Collection struct {
	ID      string         `json:"id"`
	OwnerID string         `json:"owner_id,omitempty"`
	Kind    CollectionKind `json:"kind"`
	Title   string         `json:"title"`

	// Location is a free-form place descriptor shown in the UI.
	Location  string     `json:"location,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	// Cached aggregates, recomputed on every item mutation.
	ItemCount      int `json:"item_count"`
	CompletedCount int `json:"completed_count"`

	SyncStatus SyncStatus `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

// Visible reports whether the collection may be shown to the given identity.
// activeUser is empty for the guest context.
func (c *Collection) Visible(activeUser string) bool {
	if c.Kind == KindShared {
		return activeUser != ""
	}
	return c.OwnerID == activeUser
}

// ItemStatus is the pending/completed state of a tracked species.
type ItemStatus string

const (
	ItemPending   ItemStatus = "pending"
	ItemCompleted ItemStatus = "completed"
)

// Item tracks a single species within a collection. At most one item per
// (CollectionID, SpeciesID) pair exists; duplicate inserts are rejected.
type Item struct {
	ID           string `json:"id"`
	CollectionID string `json:"collection_id"`
	SpeciesID    string `json:"species_id"`

	Status      ItemStatus `json:"status"`
	Notes       string     `json:"notes,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Optional sighting coordinate.
	Lat *float64 `json:"lat,omitempty"`
	Lon *float64 `json:"lon,omitempty"`

	// Optional target window for planned sightings.
	TargetStart *time.Time `json:"target_start,omitempty"`
	TargetEnd   *time.Time `json:"target_end,omitempty"`

	NotifyEnabled bool `json:"notify_enabled"`

	SyncStatus SyncStatus `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Photo is an attachment on an item. The binary itself is uploaded
// separately; the record carries only paths.
type Photo struct {
	ID        string `json:"id"`
	ItemID    string `json:"item_id"`
	LocalPath string `json:"local_path,omitempty"`
	RemoteURL string `json:"remote_url,omitempty"`

	SyncStatus SyncStatus `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
