// Package store tests for the durable operation queue.
package store

import (
	"testing"

	"github.com/linkstash/linkstash/internal/models"
)

func strptr(s string) *string { return &s }

func createOp(tempID string) *models.Op {
	return &models.Op{
		Type: models.OpCreate,
		Create: &models.CreatePayload{
			TempID: tempID,
			Item:   *testItem(tempID, 100),
		},
	}
}

func TestEnqueueAssignsAscendingIDs(t *testing.T) {
	s := setupTestStore(t)

	var last int64
	for i := 0; i < 5; i++ {
		id, err := s.Enqueue(createOp("tmp-1-aaaaaaaa"))
		if err != nil {
			t.Fatalf("Enqueue() failed: %v", err)
		}
		if id <= last {
			t.Errorf("queue id %d not greater than previous %d", id, last)
		}
		last = id
	}
}

func TestListQueueOrder(t *testing.T) {
	s := setupTestStore(t)

	ops := []*models.Op{
		createOp("tmp-1-aaaaaaaa"),
		{Type: models.OpUpdate, Update: &models.UpdatePayload{
			TargetID: "tmp-1-aaaaaaaa",
			Fields:   models.Fields{Title: strptr("new title")},
		}},
		{Type: models.OpDelete, Delete: &models.DeletePayload{TargetID: "itm_9"}},
		{Type: models.OpArchive, Archive: &models.ArchivePayload{WeekKey: "2024-06-03"}},
	}
	for _, op := range ops {
		if _, err := s.Enqueue(op); err != nil {
			t.Fatalf("Enqueue(%s) failed: %v", op.Type, err)
		}
	}

	listed, err := s.ListQueue()
	if err != nil {
		t.Fatalf("ListQueue() failed: %v", err)
	}
	if len(listed) != 4 {
		t.Fatalf("ListQueue() returned %d ops, want 4", len(listed))
	}

	wantTypes := []models.OpType{models.OpCreate, models.OpUpdate, models.OpDelete, models.OpArchive}
	for i, op := range listed {
		if op.Type != wantTypes[i] {
			t.Errorf("ops[%d].Type = %s, want %s", i, op.Type, wantTypes[i])
		}
		if i > 0 && op.QueueID <= listed[i-1].QueueID {
			t.Errorf("queue ids not strictly ascending at %d", i)
		}
	}

	// Payload round-trips with the right variant populated.
	if listed[1].Update == nil || listed[1].Update.Fields.Title == nil ||
		*listed[1].Update.Fields.Title != "new title" {
		t.Errorf("update payload lost: %+v", listed[1].Update)
	}
	if listed[3].Archive == nil || listed[3].Archive.WeekKey != "2024-06-03" {
		t.Errorf("archive payload lost: %+v", listed[3].Archive)
	}
}

func TestDequeueIdempotent(t *testing.T) {
	s := setupTestStore(t)

	id, err := s.Enqueue(createOp("tmp-1-aaaaaaaa"))
	if err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}

	if err := s.Dequeue(id); err != nil {
		t.Fatalf("Dequeue() failed: %v", err)
	}
	if err := s.Dequeue(id); err != nil {
		t.Errorf("second Dequeue() = %v, want nil", err)
	}

	n, err := s.QueueLen()
	if err != nil {
		t.Fatalf("QueueLen() failed: %v", err)
	}
	if n != 0 {
		t.Errorf("QueueLen() = %d, want 0", n)
	}
}

func TestUpdateQueuedRewritesPayloadInPlace(t *testing.T) {
	s := setupTestStore(t)

	op := createOp("tmp-1-aaaaaaaa")
	if _, err := s.Enqueue(op); err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}
	if _, err := s.Enqueue(&models.Op{
		Type:    models.OpArchive,
		Archive: &models.ArchivePayload{WeekKey: "2024-06-03"},
	}); err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}

	op.Create.Item.Title = "merged title"
	if err := s.UpdateQueued(op); err != nil {
		t.Fatalf("UpdateQueued() failed: %v", err)
	}

	listed, err := s.ListQueue()
	if err != nil {
		t.Fatalf("ListQueue() failed: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("queue length = %d, want 2 (no new op added)", len(listed))
	}
	if listed[0].QueueID != op.QueueID {
		t.Error("rewritten op lost its queue position")
	}
	if listed[0].Create.Item.Title != "merged title" {
		t.Errorf("payload not rewritten: %+v", listed[0].Create.Item)
	}
}

func TestFindQueuedCreate(t *testing.T) {
	s := setupTestStore(t)

	if _, err := s.Enqueue(createOp("tmp-1-aaaaaaaa")); err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}
	if _, err := s.Enqueue(createOp("tmp-2-bbbbbbbb")); err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}

	op, err := s.FindQueuedCreate("tmp-2-bbbbbbbb")
	if err != nil {
		t.Fatalf("FindQueuedCreate() failed: %v", err)
	}
	if op == nil || op.Create.TempID != "tmp-2-bbbbbbbb" {
		t.Errorf("FindQueuedCreate() = %+v, want matching create", op)
	}

	none, err := s.FindQueuedCreate("tmp-3-cccccccc")
	if err != nil {
		t.Fatalf("FindQueuedCreate(absent) failed: %v", err)
	}
	if none != nil {
		t.Errorf("FindQueuedCreate(absent) = %+v, want nil", none)
	}
}

func TestDropQueuedForTarget(t *testing.T) {
	s := setupTestStore(t)

	if _, err := s.Enqueue(createOp("tmp-1-aaaaaaaa")); err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}
	if _, err := s.Enqueue(&models.Op{
		Type: models.OpUpdate,
		Update: &models.UpdatePayload{
			TargetID: "tmp-1-aaaaaaaa",
			Fields:   models.Fields{Notes: strptr("note")},
		},
	}); err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}
	if _, err := s.Enqueue(createOp("tmp-2-bbbbbbbb")); err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}

	if err := s.DropQueuedForTarget("tmp-1-aaaaaaaa"); err != nil {
		t.Fatalf("DropQueuedForTarget() failed: %v", err)
	}

	listed, err := s.ListQueue()
	if err != nil {
		t.Fatalf("ListQueue() failed: %v", err)
	}
	if len(listed) != 1 || listed[0].Create.TempID != "tmp-2-bbbbbbbb" {
		t.Errorf("queue after drop = %+v, want only the unrelated create", listed)
	}
}
