// Package models provides data model definitions for the linkstash sync core.
package models

import (
	"encoding/json"
	"fmt"
)

// OpType represents the kind of a queued operation.
type OpType string

const (
	OpCreate  OpType = "create"
	OpUpdate  OpType = "update"
	OpDelete  OpType = "delete"
	OpArchive OpType = "archive"
)

// CreatePayload carries the full field set of an item whose remote create is
// pending. WeekOf inside Item was computed at capture time and is frozen;
// replay must not recompute it.
type CreatePayload struct {
	TempID string `json:"temp_id"`
	Item   Item   `json:"item"`
}

// UpdatePayload carries the changed fields of a pending remote update.
// TargetID may still be a temporary id when the op is enqueued; replay
// rewrites it to the permanent id once the preceding create resolves.
type UpdatePayload struct {
	TargetID string `json:"target_id"`
	Fields   Fields `json:"fields"`
}

// DeletePayload carries the target of a pending remote soft-delete.
type DeletePayload struct {
	TargetID string `json:"target_id"`
}

// ArchivePayload carries the week key captured when the archive was
// requested. Replay targets this key, never the week current at replay time.
type ArchivePayload struct {
	WeekKey string `json:"week_key"`
}

// Op represents one pending remote mutation. Exactly one payload member is
// non-nil, matching Type. QueueID is assigned by the store at enqueue time
// and is authoritative for replay order; Timestamp is a tie-break and
// debugging aid only.
type Op struct {
	QueueID   int64
	Type      OpType
	Create    *CreatePayload
	Update    *UpdatePayload
	Delete    *DeletePayload
	Archive   *ArchivePayload
	Timestamp int64
}

// TableName returns the table name for Op.
func (Op) TableName() string {
	return "op_queue"
}

// EncodePayload serializes the payload variant matching the op type.
func (o *Op) EncodePayload() (json.RawMessage, error) {
	var v interface{}
	switch o.Type {
	case OpCreate:
		v = o.Create
	case OpUpdate:
		v = o.Update
	case OpDelete:
		v = o.Delete
	case OpArchive:
		v = o.Archive
	default:
		return nil, fmt.Errorf("unknown op type: %q", o.Type)
	}
	if v == nil {
		return nil, fmt.Errorf("op %q has no payload", o.Type)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", o.Type, err)
	}
	return data, nil
}

// DecodeOp reconstructs an Op from its stored columns.
func DecodeOp(queueID int64, typ OpType, payload json.RawMessage, timestamp int64) (*Op, error) {
	op := &Op{
		QueueID:   queueID,
		Type:      typ,
		Timestamp: timestamp,
	}
	var err error
	switch typ {
	case OpCreate:
		op.Create = &CreatePayload{}
		err = json.Unmarshal(payload, op.Create)
	case OpUpdate:
		op.Update = &UpdatePayload{}
		err = json.Unmarshal(payload, op.Update)
	case OpDelete:
		op.Delete = &DeletePayload{}
		err = json.Unmarshal(payload, op.Delete)
	case OpArchive:
		op.Archive = &ArchivePayload{}
		err = json.Unmarshal(payload, op.Archive)
	default:
		return nil, fmt.Errorf("unknown op type: %q", typ)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", typ, err)
	}
	return op, nil
}

// TargetID returns the item id an update/delete op points at, or "" for
// other op types.
func (o *Op) TargetID() string {
	switch o.Type {
	case OpUpdate:
		if o.Update != nil {
			return o.Update.TargetID
		}
	case OpDelete:
		if o.Delete != nil {
			return o.Delete.TargetID
		}
	}
	return ""
}

// SetTargetID rewrites the target of an update/delete op. Used during
// replay when a temporary id resolves to its permanent id.
func (o *Op) SetTargetID(id string) {
	switch o.Type {
	case OpUpdate:
		if o.Update != nil {
			o.Update.TargetID = id
		}
	case OpDelete:
		if o.Delete != nil {
			o.Delete.TargetID = id
		}
	}
}
