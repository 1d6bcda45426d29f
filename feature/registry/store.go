package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the mutation surface for the mirror tables. During a sync run it
// must only be driven by the single writer and the orchestrator.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store on top of an open connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for read-only queries.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// AutoMigrate creates or updates all mirror tables.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(
		&Server{},
		&Domain{},
		&Account{},
		&DomainChange{},
		&AccountChange{},
		&Snapshot{},
	)
}

// CreateServer registers a new monitored server.
func (s *Store) CreateServer(ctx context.Context, srv *Server) error {
	if err := s.db.WithContext(ctx).Create(srv).Error; err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return nil
}

// ListServers returns all monitored servers ordered by name.
func (s *Store) ListServers(ctx context.Context) ([]Server, error) {
	var servers []Server
	if err := s.db.WithContext(ctx).Order("name").Find(&servers).Error; err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	return servers, nil
}

// FindServerByName returns one server or gorm.ErrRecordNotFound.
func (s *Store) FindServerByName(ctx context.Context, name string) (*Server, error) {
	var srv Server
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&srv).Error; err != nil {
		return nil, err
	}
	return &srv, nil
}

// DeleteServer removes a server and everything mirrored for it.
func (s *Store) DeleteServer(ctx context.Context, serverID uuid.UUID) error {
	db := s.db.WithContext(ctx)

	var domainIDs []uuid.UUID
	if err := db.Model(&Domain{}).Where("server_id = ?", serverID).Pluck("id", &domainIDs).Error; err != nil {
		return fmt.Errorf("failed to collect domains for server: %w", err)
	}

	if len(domainIDs) > 0 {
		if err := db.Where("domain_id IN ?", domainIDs).Delete(&Account{}).Error; err != nil {
			return fmt.Errorf("failed to delete accounts for server: %w", err)
		}
	}
	if err := db.Where("server_id = ?", serverID).Delete(&Domain{}).Error; err != nil {
		return fmt.Errorf("failed to delete domains for server: %w", err)
	}
	if err := db.Where("id = ?", serverID).Delete(&Server{}).Error; err != nil {
		return fmt.Errorf("failed to delete server: %w", err)
	}
	return nil
}

// ObservedDomain is one inventory row as observed on the remote server.
type ObservedDomain struct {
	Name   string
	Status string
}

// DomainReconciliation is the outcome of reconciling one server's domain
// inventory against the mirror.
type DomainReconciliation struct {
	// IDByName maps each mirrored domain name (lowercase) to its row ID.
	IDByName map[string]uuid.UUID
	// StatusByName maps each observed domain name to its latest status.
	StatusByName map[string]string
	// Seen is the set of domain names present in the new inventory.
	Seen map[string]struct{}
	// EventsEmitted counts the change events appended by this pass.
	EventsEmitted int
}

// ReconcileDomains upserts the full domain inventory for one server and
// appends change events for added domains and status transitions. A domain
// observed with an unchanged status produces no event, which keeps a
// repeated run event-free.
func (s *Store) ReconcileDomains(ctx context.Context, serverID uuid.UUID, observed []ObservedDomain) (*DomainReconciliation, error) {
	db := s.db.WithContext(ctx)
	now := time.Now().UTC()

	rec := &DomainReconciliation{
		IDByName:     make(map[string]uuid.UUID),
		StatusByName: make(map[string]string),
		Seen:         make(map[string]struct{}),
	}

	for _, d := range observed {
		name := strings.ToLower(strings.TrimSpace(d.Name))
		if name == "" {
			continue
		}
		rec.Seen[name] = struct{}{}
		rec.StatusByName[name] = strings.TrimSpace(d.Status)
	}

	var existing []Domain
	if err := db.Where("server_id = ?", serverID).Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to load existing domains: %w", err)
	}
	existingStatus := make(map[string]string, len(existing))
	for _, d := range existing {
		existingStatus[strings.ToLower(d.Name)] = d.Status
	}

	names := make([]string, 0, len(rec.Seen))
	for name := range rec.Seen {
		names = append(names, name)
	}
	sort.Strings(names)

	var changes []DomainChange
	rows := make([]Domain, 0, len(names))

	for _, name := range names {
		newStatus := rec.StatusByName[name]
		oldStatus, known := existingStatus[name]

		if !known {
			changes = append(changes, DomainChange{
				ServerID:   serverID,
				DomainName: name,
				EventType:  EventDomainAdded,
				NewStatus:  &newStatus,
				HappenedAt: now,
			})
		} else if oldStatus != newStatus {
			old := oldStatus
			changes = append(changes, DomainChange{
				ServerID:   serverID,
				DomainName: name,
				EventType:  EventDomainStatusChanged,
				OldStatus:  &old,
				NewStatus:  &newStatus,
				HappenedAt: now,
			})
		}

		rows = append(rows, Domain{
			ServerID:   serverID,
			Name:       name,
			Status:     newStatus,
			StateHash:  newStatus,
			LastSeenAt: now,
		})
	}

	if len(rows) > 0 {
		err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "server_id"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "state_hash", "last_seen_at", "updated_at",
			}),
		}).Create(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("failed to upsert domains: %w", err)
		}
	}

	if err := s.insertDomainChanges(ctx, changes); err != nil {
		return nil, err
	}
	rec.EventsEmitted = len(changes)

	var current []Domain
	if err := db.Where("server_id = ?", serverID).Find(&current).Error; err != nil {
		return nil, fmt.Errorf("failed to reload domains: %w", err)
	}
	for _, d := range current {
		rec.IDByName[strings.ToLower(d.Name)] = d.ID
	}

	return rec, nil
}

// DeleteMissingDomains removes every mirrored domain of the server that is
// absent from the new inventory, together with its accounts, appending one
// DOMAIN_DELETED event per removal.
func (s *Store) DeleteMissingDomains(ctx context.Context, serverID uuid.UUID, seen map[string]struct{}) (int, error) {
	db := s.db.WithContext(ctx)
	now := time.Now().UTC()

	var existing []Domain
	if err := db.Where("server_id = ?", serverID).Find(&existing).Error; err != nil {
		return 0, fmt.Errorf("failed to load existing domains: %w", err)
	}

	var stale []Domain
	for _, d := range existing {
		if _, ok := seen[strings.ToLower(d.Name)]; !ok {
			stale = append(stale, d)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	changes := make([]DomainChange, 0, len(stale))
	ids := make([]uuid.UUID, 0, len(stale))
	for _, d := range stale {
		ids = append(ids, d.ID)
		changes = append(changes, DomainChange{
			ServerID:   serverID,
			DomainName: strings.ToLower(d.Name),
			EventType:  EventDomainDeleted,
			HappenedAt: now,
		})
	}

	if err := s.insertDomainChanges(ctx, changes); err != nil {
		return 0, err
	}

	// explicit account cleanup; no reliance on engine-level FK cascades
	if err := db.Where("domain_id IN ?", ids).Delete(&Account{}).Error; err != nil {
		return 0, fmt.Errorf("failed to delete accounts of removed domains: %w", err)
	}
	if err := db.Where("id IN ?", ids).Delete(&Domain{}).Error; err != nil {
		return 0, fmt.Errorf("failed to delete removed domains: %w", err)
	}

	return len(stale), nil
}

// IsDomainDisabled reports whether a free-text domain status marks the domain
// as invisible to the usage report (disabled, locked, or suspended).
func IsDomainDisabled(status string) bool {
	s := strings.ToLower(strings.TrimSpace(status))
	if s == "" {
		return false
	}
	for _, k := range []string{"disabled", "locked", "suspended"} {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// DeleteAccountsForDisabledDomains purges all accounts of domains whose
// latest status marks them disabled. Such domains never appear in the usage
// report, so their account rows would otherwise go stale forever.
func (s *Store) DeleteAccountsForDisabledDomains(ctx context.Context, rec *DomainReconciliation) (int64, error) {
	var disabledIDs []uuid.UUID
	for name, id := range rec.IDByName {
		if IsDomainDisabled(rec.StatusByName[name]) {
			disabledIDs = append(disabledIDs, id)
		}
	}
	if len(disabledIDs) == 0 {
		return 0, nil
	}

	res := s.db.WithContext(ctx).Where("domain_id IN ?", disabledIDs).Delete(&Account{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge accounts of disabled domains: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// SetDomainObserved records that a domain was attempted this pass: cached
// account count and last-seen timestamp are updated regardless of whether
// the pass succeeded.
func (s *Store) SetDomainObserved(ctx context.Context, domainID uuid.UUID, totalAccounts int) error {
	err := s.db.WithContext(ctx).Model(&Domain{}).Where("id = ?", domainID).
		Updates(map[string]any{
			"total_accounts": totalAccounts,
			"last_seen_at":   time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark domain observed: %w", err)
	}
	return nil
}

// UpsertAccounts writes one batch of account observations, keyed on
// (domain_id, local_part).
func (s *Store) UpsertAccounts(ctx context.Context, rows []Account) error {
	if len(rows) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "domain_id"}, {Name: "local_part"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email", "assigned_mb", "used_mb", "free_mb",
			"quota_hash", "last_seen_at", "updated_at",
		}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to upsert accounts: %w", err)
	}
	return nil
}

// DeleteUnseenAccounts removes the domain's accounts whose local part was not
// observed during this pass. An empty observed set deletes every account of
// the domain.
func (s *Store) DeleteUnseenAccounts(ctx context.Context, domainID uuid.UUID, seenLocalParts []string) (int64, error) {
	db := s.db.WithContext(ctx)

	var res *gorm.DB
	if len(seenLocalParts) == 0 {
		res = db.Where("domain_id = ?", domainID).Delete(&Account{})
	} else {
		res = db.Where("domain_id = ? AND local_part NOT IN ?", domainID, seenLocalParts).Delete(&Account{})
	}
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete unseen accounts: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// WriteSnapshot appends one run summary row with the current mirror counts.
func (s *Store) WriteSnapshot(ctx context.Context, source string) (*Snapshot, error) {
	db := s.db.WithContext(ctx)

	var servers, domains, accounts int64
	if err := db.Model(&Server{}).Count(&servers).Error; err != nil {
		return nil, fmt.Errorf("failed to count servers: %w", err)
	}
	if err := db.Model(&Domain{}).Count(&domains).Error; err != nil {
		return nil, fmt.Errorf("failed to count domains: %w", err)
	}
	if err := db.Model(&Account{}).Count(&accounts).Error; err != nil {
		return nil, fmt.Errorf("failed to count accounts: %w", err)
	}

	snap := &Snapshot{
		TakenAt:       time.Now().UTC(),
		Source:        source,
		ServersCount:  int(servers),
		DomainsCount:  int(domains),
		AccountsCount: int(accounts),
	}
	if err := db.Create(snap).Error; err != nil {
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}
	return snap, nil
}

func (s *Store) insertDomainChanges(ctx context.Context, changes []DomainChange) error {
	if len(changes) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&changes).Error; err != nil {
		return fmt.Errorf("failed to append domain changes: %w", err)
	}
	return nil
}
