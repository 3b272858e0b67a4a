package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Concrete record payloads. Only the fields the engine needs to validate a
// decoded payload are typed here; unknown fields travel opaquely in
// Record.Payload.

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Property struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	Zip       string    `json:"zip"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Listing struct {
	ID         string    `json:"id"`
	PropertyID string    `json:"property_id"`
	AgentID    string    `json:"agent_id"`
	Title      string    `json:"title"`
	PriceCents int64     `json:"price_cents"`
	Status     string    `json:"status"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Task struct {
	ID         string     `json:"id"`
	ListingID  string     `json:"listing_id"`
	AssigneeID string     `json:"assignee_id"`
	Title      string     `json:"title"`
	DueAt      *time.Time `json:"due_at,omitempty"`
	Done       bool       `json:"done"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type Note struct {
	ID        string    `json:"id"`
	ListingID string    `json:"listing_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AuditEntry struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"actor_id"`
	Action    string    `json:"action"`
	Subject   string    `json:"subject"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) RecordID() string           { return u.ID }
func (u *User) EntityKind() EntityType     { return EntityUser }
func (u *User) ModifiedAt() time.Time      { return u.UpdatedAt }
func (u *User) Strategy() ConflictStrategy { return StrategyFor(EntityUser) }

func (p *Property) RecordID() string           { return p.ID }
func (p *Property) EntityKind() EntityType     { return EntityProperty }
func (p *Property) ModifiedAt() time.Time      { return p.UpdatedAt }
func (p *Property) Strategy() ConflictStrategy { return StrategyFor(EntityProperty) }

func (l *Listing) RecordID() string           { return l.ID }
func (l *Listing) EntityKind() EntityType     { return EntityListing }
func (l *Listing) ModifiedAt() time.Time      { return l.UpdatedAt }
func (l *Listing) Strategy() ConflictStrategy { return StrategyFor(EntityListing) }

func (t *Task) RecordID() string           { return t.ID }
func (t *Task) EntityKind() EntityType     { return EntityTask }
func (t *Task) ModifiedAt() time.Time      { return t.UpdatedAt }
func (t *Task) Strategy() ConflictStrategy { return StrategyFor(EntityTask) }

func (n *Note) RecordID() string           { return n.ID }
func (n *Note) EntityKind() EntityType     { return EntityNote }
func (n *Note) ModifiedAt() time.Time      { return n.UpdatedAt }
func (n *Note) Strategy() ConflictStrategy { return StrategyFor(EntityNote) }

func (a *AuditEntry) RecordID() string           { return a.ID }
func (a *AuditEntry) EntityKind() EntityType     { return EntityAuditEntry }
func (a *AuditEntry) ModifiedAt() time.Time      { return a.UpdatedAt }
func (a *AuditEntry) Strategy() ConflictStrategy { return StrategyFor(EntityAuditEntry) }

var (
	ErrUnknownEntity  = errors.New("unknown entity type")
	ErrInvalidPayload = errors.New("invalid record payload")
)

var decoders = map[EntityType]func() Syncable{
	EntityUser:       func() Syncable { return &User{} },
	EntityProperty:   func() Syncable { return &Property{} },
	EntityListing:    func() Syncable { return &Listing{} },
	EntityTask:       func() Syncable { return &Task{} },
	EntityNote:       func() Syncable { return &Note{} },
	EntityAuditEntry: func() Syncable { return &AuditEntry{} },
}

// DecodePayload unmarshals a raw remote payload into the concrete record
// type registered for entity and validates the minimal invariants every
// syncable record must satisfy (non-empty id, non-zero modification time).
func DecodePayload(entity EntityType, payload json.RawMessage) (Syncable, error) {
	newRecord, ok := decoders[entity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}

	rec := newRecord()
	if err := json.Unmarshal(payload, rec); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrInvalidPayload, entity, err)
	}
	if rec.RecordID() == "" {
		return nil, fmt.Errorf("%w: %s record without id", ErrInvalidPayload, entity)
	}
	if rec.ModifiedAt().IsZero() {
		return nil, fmt.Errorf("%w: %s record %s without updated_at", ErrInvalidPayload, entity, rec.RecordID())
	}
	return rec, nil
}
