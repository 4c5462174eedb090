// Package remote defines the remote item store contract and its HTTP client.
//
// The sync engine treats any non-success outcome uniformly as "remote
// attempt failed": timeouts, transport errors and every non-2xx status map
// to REMOTE_ERROR. A 404 on update or delete is no different: the item may
// simply not exist remotely yet because a prior create hasn't landed.
package remote

import (
	"context"

	"github.com/linkstash/linkstash/internal/models"
)

// Filter narrows a List call.
type Filter struct {
	Status models.Status
	WeekOf string
}

// Gateway is the remote source of truth for items. All calls are
// request/response; there is no streaming.
type Gateway interface {
	// List returns the items matching the filter.
	List(ctx context.Context, filter Filter) ([]*models.Item, error)

	// Create stores a new item and returns the server record with its
	// permanent id. The submitted item carries the client's temporary id
	// so the remote can deduplicate a replayed create.
	Create(ctx context.Context, item *models.Item) (*models.Item, error)

	// Update applies changed fields to an existing item and returns the
	// updated server record.
	Update(ctx context.Context, id string, fields models.Fields) (*models.Item, error)

	// SoftDelete marks an item deleted.
	SoftDelete(ctx context.Context, id string) error

	// BulkTransitionStatus moves every item of one week from one status
	// to another.
	BulkTransitionStatus(ctx context.Context, from models.Status, weekKey string, to models.Status) error
}
