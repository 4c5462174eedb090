// Package models provides data model definitions for the linkstash sync core.
package models

import "time"

// Status represents the lifecycle state of an item.
// StatusDeleted is a soft-delete marker: the row stays in the local store
// until the deletion is confirmed by the remote store.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
	StatusDeleted  Status = "deleted"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusArchived, StatusDeleted:
		return true
	}
	return false
}

// Item represents one captured note or link.
//
// ID is either a client-generated temporary id (see internal/ident) or a
// permanent id assigned by the remote store. Synced is true only when the
// id and fields are known to match the remote store.
type Item struct {
	ID        string `db:"id" json:"id"`
	URL       string `db:"url" json:"url,omitempty"`
	Title     string `db:"title" json:"title,omitempty"`
	Notes     string `db:"notes" json:"notes,omitempty"`
	Category  string `db:"category" json:"category,omitempty"`
	Status    Status `db:"status" json:"status"`
	WeekOf    string `db:"week_of" json:"week_of"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
	UpdatedAt int64  `db:"updated_at" json:"updated_at"`
	Synced    bool   `db:"synced" json:"synced"`
}

// TableName returns the table name for Item.
func (Item) TableName() string {
	return "items"
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (i *Item) CreatedAtTime() time.Time {
	return time.Unix(i.CreatedAt, 0)
}

// UpdatedAtTime returns the UpdatedAt as time.Time.
func (i *Item) UpdatedAtTime() time.Time {
	return time.Unix(i.UpdatedAt, 0)
}

// Touch updates the UpdatedAt timestamp.
func (i *Item) Touch() {
	i.UpdatedAt = time.Now().Unix()
}

// Clone returns a shallow copy of the item.
func (i *Item) Clone() *Item {
	c := *i
	return &c
}

// Fields carries a partial set of item fields for create and update
// operations. Nil members are left untouched on merge.
type Fields struct {
	URL      *string `json:"url,omitempty"`
	Title    *string `json:"title,omitempty"`
	Notes    *string `json:"notes,omitempty"`
	Category *string `json:"category,omitempty"`
}

// Apply merges the non-nil fields into the item.
func (f Fields) Apply(i *Item) {
	if f.URL != nil {
		i.URL = *f.URL
	}
	if f.Title != nil {
		i.Title = *f.Title
	}
	if f.Notes != nil {
		i.Notes = *f.Notes
	}
	if f.Category != nil {
		i.Category = *f.Category
	}
}

// Empty reports whether no field is set.
func (f Fields) Empty() bool {
	return f.URL == nil && f.Title == nil && f.Notes == nil && f.Category == nil
}
