package registry

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Domain change event types.
const (
	EventDomainAdded         = "DOMAIN_ADDED"
	EventDomainStatusChanged = "DOMAIN_STATUS_CHANGED"
	EventDomainDeleted       = "DOMAIN_DELETED"
)

// Server is one monitored mail server. Immutable during a sync run.
type Server struct {
	ID                uuid.UUID `gorm:"type:char(36);primaryKey"`
	Name              string    `gorm:"uniqueIndex;not null"`
	Hostname          string    `gorm:"not null"`
	CLIPort           int       `gorm:"column:cli_port;not null;default:7000"`
	WebadminPort      int       `gorm:"not null;default:9000"`
	Username          string    `gorm:"not null"`
	EncryptedPassword string    `gorm:"not null"`
	Notes             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Domain is one administrative namespace on a server, unique per
// (server, name).
type Domain struct {
	ID            uuid.UUID `gorm:"type:char(36);primaryKey"`
	ServerID      uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:uq_domains_server_id_name"`
	Name          string    `gorm:"not null;uniqueIndex:uq_domains_server_id_name"`
	Status        string
	TotalAccounts int `gorm:"not null;default:0"`
	// StateHash is the domain's state fingerprint, derived from its status.
	StateHash  string
	LastSeenAt time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Account is one mailbox, unique per (domain, local part). Nil size fields
// mean unlimited or unknown.
type Account struct {
	ID         uuid.UUID `gorm:"type:char(36);primaryKey"`
	DomainID   uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:uq_accounts_domain_id_local_part"`
	LocalPart  string    `gorm:"not null;uniqueIndex:uq_accounts_domain_id_local_part"`
	Email      string    `gorm:"not null;index"`
	AssignedMB *int64
	UsedMB     *int64
	FreeMB     *int64
	// QuotaHash is the quota fingerprint, derived from the assigned value
	// only. Used storage changes continuously and would defeat change
	// detection if it took part.
	QuotaHash  string
	LastSeenAt time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DomainChange is one immutable domain transition. Never updated or deleted.
type DomainChange struct {
	ID         uuid.UUID `gorm:"type:char(36);primaryKey"`
	ServerID   uuid.UUID `gorm:"type:char(36);not null;index"`
	DomainName string    `gorm:"not null"`
	EventType  string    `gorm:"not null"`
	OldStatus  *string
	NewStatus  *string
	HappenedAt time.Time `gorm:"not null"`
}

// AccountChange is one immutable account transition. The table is in place
// for quota-change auditing; nothing writes to it yet.
type AccountChange struct {
	ID         uuid.UUID `gorm:"type:char(36);primaryKey"`
	ServerID   uuid.UUID `gorm:"type:char(36);not null;index"`
	Email      string    `gorm:"not null"`
	EventType  string    `gorm:"not null"`
	OldValue   *string
	NewValue   *string
	HappenedAt time.Time `gorm:"not null"`
}

// Snapshot is one immutable per-run summary row.
type Snapshot struct {
	ID            uuid.UUID `gorm:"type:char(36);primaryKey"`
	TakenAt       time.Time `gorm:"not null"`
	Source        string
	ServersCount  int
	DomainsCount  int
	AccountsCount int
}

func (s *Server) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (d *Domain) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

func (a *Account) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (c *DomainChange) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (c *AccountChange) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (s *Snapshot) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
