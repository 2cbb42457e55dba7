package models

import (
	"encoding/json"
	"time"
)

// RecordKind names a syncable record family.
type RecordKind string

const (
	KindCollection RecordKind = "collection"
	KindItem       RecordKind = "item"
	KindRule       RecordKind = "rule"
	KindPhoto      RecordKind = "photo"
)

// Kinds lists every record kind in sync order: parents before children so
// a freshly created collection reaches the server before its items.
var Kinds = []RecordKind{KindCollection, KindItem, KindRule, KindPhoto}

// Operation is the remote call a queue entry stands for.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// QueueEntry is one pending remote operation. The queue keeps at most one
// entry per (Kind, RecordID); a newer mutation supersedes the queued one
// rather than duplicating it.
type QueueEntry struct {
	RecordID string
	Kind     RecordKind
	Op       Operation

	// Payload is the record serialized at enqueue time. The queue never
	// holds live references into the store.
	Payload []byte

	EnqueuedAt    time.Time
	AttemptCount  int
	NextAttemptAt time.Time
}

// QueuePayload is the envelope stored in QueueEntry.Payload. OwnerID is
// snapshotted at enqueue time so the sync agent can gate on ownership
// without chasing parent rows; only Record goes to the server.
type QueuePayload struct {
	OwnerID string          `json:"owner_id,omitempty"`
	Record  json.RawMessage `json:"record"`
}

// DecodePayload unpacks the entry's envelope.
func (e *QueueEntry) DecodePayload() (*QueuePayload, error) {
	var p QueuePayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
