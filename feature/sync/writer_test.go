package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailwatch/core/database"
	"mailwatch/feature/registry"
)

func setupMirror(t *testing.T, domains ...registry.ObservedDomain) (*registry.Store, *registry.DomainReconciliation) {
	t.Helper()

	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)

	store := registry.NewStore(db)
	require.NoError(t, store.AutoMigrate())

	srv := &registry.Server{
		Name: "mx1", Hostname: "mx1.example.net",
		Username: "admin", EncryptedPassword: "sealed",
	}
	require.NoError(t, store.CreateServer(context.Background(), srv))

	rec, err := store.ReconcileDomains(context.Background(), srv.ID, domains)
	require.NoError(t, err)
	return store, rec
}

func accountsOf(t *testing.T, store *registry.Store, rec *registry.DomainReconciliation, domain string) []registry.Account {
	t.Helper()
	var accounts []registry.Account
	db := store.DB()
	require.NoError(t, db.Where("domain_id = ?", rec.IDByName[domain]).Order("local_part").Find(&accounts).Error)
	return accounts
}

func TestWriterPersistsObservations(t *testing.T) {
	store, rec := setupMirror(t, registry.ObservedDomain{Name: "x.com", Status: "enabled"})
	ctx := context.Background()

	assigned := int64(2048)
	writer := NewWriter(store, rec, 0, zap.NewNop())
	writer.Consume(ctx, DomainResult{
		Domain: "x.com",
		Status: StatusSuccess,
		Accounts: []AccountObservation{
			{Email: "Alice@X.com", LocalPart: "Alice", AssignedMB: &assigned, UsedMB: 100},
			{Email: "bob@x.com", LocalPart: "bob", UsedMB: 7},
		},
	})
	require.NoError(t, writer.Finish(ctx))

	accounts := accountsOf(t, store, rec, "x.com")
	require.Len(t, accounts, 2)

	alice := accounts[0]
	assert.Equal(t, "alice", alice.LocalPart)
	assert.Equal(t, "alice@x.com", alice.Email)
	require.NotNil(t, alice.AssignedMB)
	assert.Equal(t, int64(2048), *alice.AssignedMB)
	require.NotNil(t, alice.UsedMB)
	assert.Equal(t, int64(100), *alice.UsedMB)
	require.NotNil(t, alice.FreeMB)
	assert.Equal(t, int64(1948), *alice.FreeMB)
	assert.Equal(t, "2048", alice.QuotaHash)

	bob := accounts[1]
	assert.Nil(t, bob.AssignedMB)
	assert.Nil(t, bob.FreeMB) // free is unknowable without an assigned figure
	assert.Equal(t, "unlimited", bob.QuotaHash)

	var d registry.Domain
	require.NoError(t, store.DB().First(&d, "id = ?", rec.IDByName["x.com"]).Error)
	assert.Equal(t, 2, d.TotalAccounts)
}

func TestWriterDeletesUnseenAccounts(t *testing.T) {
	store, rec := setupMirror(t, registry.ObservedDomain{Name: "x.com", Status: "enabled"})
	ctx := context.Background()

	// run N: two accounts
	writer := NewWriter(store, rec, 0, zap.NewNop())
	writer.Consume(ctx, DomainResult{
		Domain: "x.com", Status: StatusSuccess,
		Accounts: []AccountObservation{
			{Email: "alice@x.com", LocalPart: "alice"},
			{Email: "bob@x.com", LocalPart: "bob"},
		},
	})
	require.NoError(t, writer.Finish(ctx))
	require.Len(t, accountsOf(t, store, rec, "x.com"), 2)

	// run N+1: bob is gone
	writer = NewWriter(store, rec, 0, zap.NewNop())
	writer.Consume(ctx, DomainResult{
		Domain: "x.com", Status: StatusSuccess,
		Accounts: []AccountObservation{
			{Email: "alice@x.com", LocalPart: "alice"},
		},
	})
	require.NoError(t, writer.Finish(ctx))

	accounts := accountsOf(t, store, rec, "x.com")
	require.Len(t, accounts, 1)
	assert.Equal(t, "alice", accounts[0].LocalPart)
}

func TestWriterZeroObservationsWipesProcessedDomain(t *testing.T) {
	store, rec := setupMirror(t, registry.ObservedDomain{Name: "x.com", Status: "enabled"})
	ctx := context.Background()

	writer := NewWriter(store, rec, 0, zap.NewNop())
	writer.Consume(ctx, DomainResult{
		Domain: "x.com", Status: StatusSuccess,
		Accounts: []AccountObservation{{Email: "alice@x.com", LocalPart: "alice"}},
	})
	require.NoError(t, writer.Finish(ctx))

	writer = NewWriter(store, rec, 0, zap.NewNop())
	writer.Consume(ctx, DomainResult{Domain: "x.com", Status: StatusFailed})
	require.NoError(t, writer.Finish(ctx))

	assert.Empty(t, accountsOf(t, store, rec, "x.com"))
}

func TestWriterUntouchedDomainKeepsAccounts(t *testing.T) {
	store, rec := setupMirror(t,
		registry.ObservedDomain{Name: "x.com", Status: "enabled"},
		registry.ObservedDomain{Name: "y.com", Status: "enabled"},
	)
	ctx := context.Background()

	writer := NewWriter(store, rec, 0, zap.NewNop())
	writer.Consume(ctx, DomainResult{
		Domain: "y.com", Status: StatusSuccess,
		Accounts: []AccountObservation{{Email: "carol@y.com", LocalPart: "carol"}},
	})
	require.NoError(t, writer.Finish(ctx))

	// x.com produced no result this pass; nothing of it may be touched
	writer = NewWriter(store, rec, 0, zap.NewNop())
	require.NoError(t, writer.Finish(ctx))
	require.Len(t, accountsOf(t, store, rec, "y.com"), 1)
}

func TestWriterFlushThreshold(t *testing.T) {
	store, rec := setupMirror(t, registry.ObservedDomain{Name: "x.com", Status: "enabled"})
	ctx := context.Background()

	// threshold of 2 forces a mid-stream flush before Finish
	writer := NewWriter(store, rec, 2, zap.NewNop())
	writer.Consume(ctx, DomainResult{
		Domain: "x.com", Status: StatusSuccess,
		Accounts: []AccountObservation{
			{Email: "a@x.com", LocalPart: "a"},
			{Email: "b@x.com", LocalPart: "b"},
			{Email: "c@x.com", LocalPart: "c"},
		},
	})
	require.Len(t, accountsOf(t, store, rec, "x.com"), 2)

	require.NoError(t, writer.Finish(ctx))
	require.Len(t, accountsOf(t, store, rec, "x.com"), 3)
}

func TestWriterIgnoresUnmirroredDomain(t *testing.T) {
	store, rec := setupMirror(t, registry.ObservedDomain{Name: "x.com", Status: "enabled"})
	ctx := context.Background()

	writer := NewWriter(store, rec, 0, zap.NewNop())
	writer.Consume(ctx, DomainResult{
		Domain: "stranger.net", Status: StatusSuccess,
		Accounts: []AccountObservation{{Email: "a@stranger.net", LocalPart: "a"}},
	})
	require.NoError(t, writer.Finish(ctx))

	var count int64
	require.NoError(t, store.DB().Model(&registry.Account{}).Count(&count).Error)
	assert.Zero(t, count)
}
