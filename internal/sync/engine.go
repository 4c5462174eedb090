// Package sync implements the offline reconciliation protocol: optimistic
// local writes, a durable operation queue, and ordered replay against the
// remote gateway once connectivity returns.
package sync

import (
	"context"
	"log/slog"
	gosync "sync"
	"time"

	apperrors "github.com/linkstash/linkstash/internal/errors"
	"github.com/linkstash/linkstash/internal/ident"
	"github.com/linkstash/linkstash/internal/models"
	"github.com/linkstash/linkstash/internal/remote"
	"github.com/linkstash/linkstash/internal/store"
	"github.com/linkstash/linkstash/internal/week"
)

// Status represents the current engine status.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusDraining Status = "draining"
	StatusFailed   Status = "failed"
)

// DefaultRemoteTimeout bounds every single gateway call issued by the
// engine. A mutation therefore resolves within one timeout window
// regardless of connectivity.
const DefaultRemoteTimeout = 10 * time.Second

// Result summarizes one replay pass over the queue.
type Result struct {
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}

// Engine orchestrates optimistic local mutations and queue replay.
//
// Mutating calls are expected from a single logical writer (the UI task
// sequence); Drain may additionally run from the connectivity monitor's
// goroutine, so the drain bookkeeping is mutex-guarded while item state
// serialization is left to the store's transaction scope.
type Engine struct {
	store   *store.Store
	gateway remote.Gateway
	online  func() bool
	log     *slog.Logger

	timeout time.Duration
	now     func() time.Time

	mu        gosync.Mutex
	draining  bool
	followUp  bool
	drainDone chan struct{} // closed when the in-flight drain finishes
	status    Status
	lastSync  *time.Time
	lastErr   error

	events EventHandler
}

// New creates an Engine. online is the connectivity predicate consulted
// before each remote attempt; it must be non-blocking.
func New(st *store.Store, gw remote.Gateway, online func() bool, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		store:   st,
		gateway: gw,
		online:  online,
		log:     log,
		timeout: DefaultRemoteTimeout,
		now:     time.Now,
		status:  StatusIdle,
	}
}

// SetEventHandler sets the handler receiving sync notifications.
func (e *Engine) SetEventHandler(handler EventHandler) {
	e.mu.Lock()
	e.events = handler
	e.mu.Unlock()
}

// SetRemoteTimeout overrides the per-call gateway timeout.
func (e *Engine) SetRemoteTimeout(d time.Duration) {
	if d > 0 {
		e.timeout = d
	}
}

// Status returns the current engine status.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// LastSync returns the completion time of the last successful drain or
// full sync, or nil if none has succeeded yet.
func (e *Engine) LastSync() *time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSync
}

// LastError returns the last replay error, or nil.
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// PendingChanges returns the number of queued operations.
func (e *Engine) PendingChanges() int {
	n, err := e.store.QueueLen()
	if err != nil {
		return 0
	}
	return n
}

func (e *Engine) emit(event Event) {
	e.mu.Lock()
	handler := e.events
	e.mu.Unlock()
	if handler != nil {
		handler.HandleSyncEvent(event)
	}
}

// remoteCtx bounds a single gateway call.
func (e *Engine) remoteCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.timeout)
}

// Create captures a new item. The caller gets a record back immediately:
// the server-confirmed one when the remote create succeeds inline, the
// optimistic temp-id one otherwise. At least one of url/notes is required.
func (e *Engine) Create(ctx context.Context, fields models.Fields) (*models.Item, error) {
	hasURL := fields.URL != nil && *fields.URL != ""
	hasNotes := fields.Notes != nil && *fields.Notes != ""
	if !hasURL && !hasNotes {
		return nil, apperrors.New(apperrors.ErrValidation, "item requires a url or notes")
	}

	now := e.now()
	item := &models.Item{
		ID:        ident.NewTemp(),
		Status:    models.StatusActive,
		WeekOf:    week.Key(now),
		CreatedAt: now.Unix(),
		UpdatedAt: now.Unix(),
		Synced:    false,
	}
	fields.Apply(item)

	if err := e.store.Put(item); err != nil {
		return nil, err
	}

	if e.online() {
		cctx, cancel := e.remoteCtx(ctx)
		server, err := e.gateway.Create(cctx, item)
		cancel()
		if err == nil {
			if rerr := e.store.Reconcile(item.ID, server); rerr != nil {
				return nil, rerr
			}
			e.emit(Event{Type: EventItemSynced, ItemID: server.ID})
			return server, nil
		}
		e.log.Debug("remote create failed, queueing", "temp_id", item.ID, "error", err)
	}

	op := &models.Op{
		Type:      models.OpCreate,
		Create:    &models.CreatePayload{TempID: item.ID, Item: *item},
		Timestamp: now.Unix(),
	}
	if _, err := e.store.Enqueue(op); err != nil {
		return nil, err
	}
	e.emit(Event{Type: EventQueued, ItemID: item.ID, Pending: e.PendingChanges()})
	return item, nil
}

// Update applies changed fields to an item. If the item is still awaiting
// its remote create, the change folds into the pending create's payload
// instead of producing a second queued operation.
func (e *Engine) Update(ctx context.Context, id string, fields models.Fields) (*models.Item, error) {
	if fields.Empty() {
		return nil, apperrors.New(apperrors.ErrValidation, "no fields to update")
	}

	item, err := e.store.Get(id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperrors.Newf(apperrors.ErrNotFound, "item not found: %s", id)
	}

	fields.Apply(item)
	item.UpdatedAt = e.now().Unix()
	item.Synced = false
	if err := e.store.Put(item); err != nil {
		return nil, err
	}

	if ident.IsTemp(id) {
		// Nothing exists remotely yet. If a create is queued for this
		// temp id, rewrite its payload in place with the merged fields.
		pending, err := e.store.FindQueuedCreate(id)
		if err != nil {
			return nil, err
		}
		if pending != nil {
			pending.Create.Item = *item
			if err := e.store.UpdateQueued(pending); err != nil {
				return nil, err
			}
		}
		return item, nil
	}

	if e.online() {
		cctx, cancel := e.remoteCtx(ctx)
		server, err := e.gateway.Update(cctx, id, fields)
		cancel()
		if err == nil {
			if rerr := e.store.Reconcile(server.ID, server); rerr != nil {
				return nil, rerr
			}
			e.emit(Event{Type: EventItemSynced, ItemID: server.ID})
			return server, nil
		}
		e.log.Debug("remote update failed, queueing", "id", id, "error", err)
	}

	op := &models.Op{
		Type:      models.OpUpdate,
		Update:    &models.UpdatePayload{TargetID: id, Fields: fields},
		Timestamp: e.now().Unix(),
	}
	if _, err := e.store.Enqueue(op); err != nil {
		return nil, err
	}
	e.emit(Event{Type: EventQueued, ItemID: id, Pending: e.PendingChanges()})
	return item, nil
}

// Delete soft-deletes an item. A temp-id item that was never confirmed
// remotely collapses outright: the local record is removed and any queued
// operations for it are dropped, leaving no trace.
func (e *Engine) Delete(ctx context.Context, id string) error {
	item, err := e.store.Get(id)
	if err != nil {
		return err
	}
	if item == nil {
		return apperrors.Newf(apperrors.ErrNotFound, "item not found: %s", id)
	}

	if ident.IsTemp(id) {
		if err := e.store.Delete(id); err != nil {
			return err
		}
		return e.store.DropQueuedForTarget(id)
	}

	item.Status = models.StatusDeleted
	item.UpdatedAt = e.now().Unix()
	item.Synced = false
	if err := e.store.Put(item); err != nil {
		return err
	}

	if e.online() {
		cctx, cancel := e.remoteCtx(ctx)
		err := e.gateway.SoftDelete(cctx, id)
		cancel()
		if err == nil {
			if derr := e.store.Delete(id); derr != nil {
				return derr
			}
			e.emit(Event{Type: EventItemSynced, ItemID: id})
			return nil
		}
		e.log.Debug("remote delete failed, queueing", "id", id, "error", err)
	}

	op := &models.Op{
		Type:      models.OpDelete,
		Delete:    &models.DeletePayload{TargetID: id},
		Timestamp: e.now().Unix(),
	}
	if _, err := e.store.Enqueue(op); err != nil {
		return err
	}
	e.emit(Event{Type: EventQueued, ItemID: id, Pending: e.PendingChanges()})
	return nil
}

// ArchiveWeek transitions the current week's active items to archived and
// returns the week key it acted on. The key is captured now and frozen
// into any queued operation, so a replay after a week boundary still
// archives the right week.
func (e *Engine) ArchiveWeek(ctx context.Context) (string, error) {
	now := e.now()
	weekKey := week.Key(now)

	if _, err := e.store.MarkWeekArchived(weekKey, now.Unix()); err != nil {
		return "", err
	}

	if e.online() {
		cctx, cancel := e.remoteCtx(ctx)
		err := e.gateway.BulkTransitionStatus(cctx, models.StatusActive, weekKey, models.StatusArchived)
		cancel()
		if err == nil {
			if serr := e.store.MarkWeekSynced(weekKey); serr != nil {
				return "", serr
			}
			e.emit(Event{Type: EventItemSynced, WeekKey: weekKey})
			return weekKey, nil
		}
		e.log.Debug("remote archive failed, queueing", "week", weekKey, "error", err)
	}

	op := &models.Op{
		Type:      models.OpArchive,
		Archive:   &models.ArchivePayload{WeekKey: weekKey},
		Timestamp: now.Unix(),
	}
	if _, err := e.store.Enqueue(op); err != nil {
		return "", err
	}
	e.emit(Event{Type: EventQueued, WeekKey: weekKey, Pending: e.PendingChanges()})
	return weekKey, nil
}

// Drain replays the queue in ascending queueId order, one operation at a
// time. It stops at the first failure, leaving the failed operation and
// everything after it queued for the next trigger. A Drain that arrives
// while one is running coalesces into at most one follow-up pass.
func (e *Engine) Drain(ctx context.Context) (Result, error) {
	result, _, err := e.acquireAndDrain(ctx, true)
	return result, err
}

// acquireAndDrain runs one replay pass if no drain is in flight. The bool
// result reports whether this call ran the pass itself. When another drain
// is active and coalesce is set, one follow-up pass is scheduled after it.
func (e *Engine) acquireAndDrain(ctx context.Context, coalesce bool) (Result, bool, error) {
	e.mu.Lock()
	if e.draining {
		if coalesce {
			e.followUp = true
		}
		e.mu.Unlock()
		return Result{}, false, nil
	}
	e.draining = true
	e.drainDone = make(chan struct{})
	e.status = StatusDraining
	e.mu.Unlock()

	e.emit(Event{Type: EventDrainStarted, Pending: e.PendingChanges()})
	result, err := e.drain(ctx)

	e.mu.Lock()
	e.draining = false
	close(e.drainDone)
	if err != nil {
		e.status = StatusFailed
		e.lastErr = err
	} else {
		e.status = StatusIdle
		e.lastErr = nil
		t := e.now()
		e.lastSync = &t
	}
	again := e.followUp
	e.followUp = false
	e.mu.Unlock()

	e.emit(Event{Type: EventDrainFinished, Synced: result.Synced, Failed: result.Failed})

	if again {
		go func() {
			if _, ferr := e.Drain(context.Background()); ferr != nil {
				e.log.Warn("follow-up drain failed", "error", ferr)
			}
		}()
	}
	return result, true, err
}

func (e *Engine) drain(ctx context.Context) (Result, error) {
	ops, err := e.store.ListQueue()
	if err != nil {
		return Result{}, err
	}
	if len(ops) == 0 {
		return Result{}, nil
	}

	// Permanent ids resolved during this pass, keyed by the temp id they
	// replaced. Dependent operations behind a create are rewritten before
	// their own replay.
	resolved := make(map[string]string)

	var result Result
	for i, op := range ops {
		if err := e.replay(ctx, op, resolved); err != nil {
			result.Failed = len(ops) - i
			e.log.Info("drain stopped",
				"queue_id", op.QueueID, "type", op.Type,
				"synced", result.Synced, "failed", result.Failed,
				"error", err)
			return result, err
		}
		result.Synced++
	}
	e.log.Info("drain completed", "synced", result.Synced)
	return result, nil
}

// replay performs one queued operation against the gateway and, on
// success, reconciles local state and dequeues it.
func (e *Engine) replay(ctx context.Context, op *models.Op, resolved map[string]string) error {
	switch op.Type {
	case models.OpCreate:
		item := op.Create.Item
		cctx, cancel := e.remoteCtx(ctx)
		server, err := e.gateway.Create(cctx, &item)
		cancel()
		if err != nil {
			return err
		}
		if err := e.store.Reconcile(op.Create.TempID, server); err != nil {
			return err
		}
		resolved[op.Create.TempID] = server.ID
		e.emit(Event{Type: EventItemSynced, ItemID: server.ID})

	case models.OpUpdate, models.OpDelete:
		target := op.TargetID()
		if ident.IsTemp(target) {
			perm, ok := resolved[target]
			if !ok {
				// The create this op depends on has not resolved; it is
				// either later in the queue (should not happen under the
				// enqueue rules) or its replay failed earlier this pass.
				return apperrors.Newf(apperrors.ErrRemote,
					"operation %d targets unresolved temp id %s", op.QueueID, target)
			}
			op.SetTargetID(perm)
			if err := e.store.UpdateQueued(op); err != nil {
				return err
			}
			target = perm
		}
		if op.Type == models.OpUpdate {
			cctx, cancel := e.remoteCtx(ctx)
			server, err := e.gateway.Update(cctx, target, op.Update.Fields)
			cancel()
			if err != nil {
				return err
			}
			if err := e.store.Reconcile(server.ID, server); err != nil {
				return err
			}
			e.emit(Event{Type: EventItemSynced, ItemID: server.ID})
		} else {
			cctx, cancel := e.remoteCtx(ctx)
			err := e.gateway.SoftDelete(cctx, target)
			cancel()
			if err != nil {
				return err
			}
			if err := e.store.Delete(target); err != nil {
				return err
			}
			e.emit(Event{Type: EventItemSynced, ItemID: target})
		}

	case models.OpArchive:
		weekKey := op.Archive.WeekKey
		cctx, cancel := e.remoteCtx(ctx)
		err := e.gateway.BulkTransitionStatus(cctx, models.StatusActive, weekKey, models.StatusArchived)
		cancel()
		if err != nil {
			return err
		}
		if err := e.store.MarkWeekSynced(weekKey); err != nil {
			return err
		}
		e.emit(Event{Type: EventItemSynced, WeekKey: weekKey})

	default:
		return apperrors.Newf(apperrors.ErrValidation, "unknown queued op type: %s", op.Type)
	}

	return e.store.Dequeue(op.QueueID)
}

// FullSync drains the queue and then replaces the local active set for
// the current week with the remote's authoritative view, all marked
// synced. This heals divergence beyond what replay covers.
func (e *Engine) FullSync(ctx context.Context) (Result, error) {
	// The fetch must not overlap a drain already in flight: wait for it to
	// finish and then run our own pass, so "drain, then fetch" holds even
	// when a connectivity trigger and a full sync race.
	result, ran, err := e.acquireAndDrain(ctx, false)
	for !ran {
		e.mu.Lock()
		done := e.drainDone
		draining := e.draining
		e.mu.Unlock()
		if draining {
			select {
			case <-done:
			case <-ctx.Done():
				return Result{}, ctx.Err()
			}
		}
		result, ran, err = e.acquireAndDrain(ctx, false)
	}
	if err != nil {
		e.log.Warn("full sync: drain left operations queued", "failed", result.Failed, "error", err)
	}

	weekKey := week.Key(e.now())
	cctx, cancel := e.remoteCtx(ctx)
	items, lerr := e.gateway.List(cctx, remote.Filter{Status: models.StatusActive, WeekOf: weekKey})
	cancel()
	if lerr != nil {
		e.mu.Lock()
		e.status = StatusFailed
		e.lastErr = lerr
		e.mu.Unlock()
		e.emit(Event{Type: EventFailed, Error: lerr.Error()})
		return result, lerr
	}

	if err := e.store.ReplaceAll(items); err != nil {
		return result, err
	}

	e.mu.Lock()
	e.status = StatusIdle
	t := e.now()
	e.lastSync = &t
	e.mu.Unlock()

	e.emit(Event{Type: EventCompleted, Synced: result.Synced, Failed: result.Failed})
	e.log.Info("full sync completed", "week", weekKey, "items", len(items))
	return result, err
}
