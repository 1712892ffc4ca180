package snapshotv1

import "context"

// Store persists and loads per-symbol book snapshots.
type Store interface {
	Store(ctx context.Context, snapshot *Snapshot) error
	Load(ctx context.Context, symbol string) (*Snapshot, error)
}
