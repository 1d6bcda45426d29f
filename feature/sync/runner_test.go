package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailwatch/core/database"
	"mailwatch/core/secrets"
	"mailwatch/feature/axigen"
	"mailwatch/feature/registry"
)

type runnerFixture struct {
	runner *Runner
	store  *registry.Store
	server *registry.Server
}

func setupRunner(t *testing.T) *runnerFixture {
	t.Helper()

	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)

	store := registry.NewStore(db)
	require.NoError(t, store.AutoMigrate())

	key, err := secrets.GenerateKey()
	require.NoError(t, err)
	box, err := secrets.NewBox(key)
	require.NoError(t, err)

	sealed, err := box.Seal("admin-password")
	require.NoError(t, err)

	srv := &registry.Server{
		Name:              "mx1",
		Hostname:          "mx1.example.net",
		CLIPort:           7000,
		WebadminPort:      9000,
		Username:          "admin",
		EncryptedPassword: sealed,
	}
	require.NoError(t, store.CreateServer(context.Background(), srv))

	runner := &Runner{
		Store:  store,
		Box:    box,
		Config: Config{Workers: 4, FlushThreshold: 2000, CLITimeoutSeconds: 1, UsageTimeoutSeconds: 1},
		Logger: zap.NewNop(),
	}
	return &runnerFixture{runner: runner, store: store, server: srv}
}

func staticInventory(domains ...axigen.DomainInfo) func(context.Context, axigen.Target) ([]axigen.DomainInfo, error) {
	return func(context.Context, axigen.Target) ([]axigen.DomainInfo, error) {
		return domains, nil
	}
}

func staticUsage(rows ...axigen.UsageRow) func(context.Context, axigen.Target) ([]axigen.UsageRow, error) {
	return func(context.Context, axigen.Target) ([]axigen.UsageRow, error) {
		return rows, nil
	}
}

func quotaDialer(quotaKB map[string]int64) func(axigen.Target) Dialer {
	return func(axigen.Target) Dialer {
		return DialerFunc(func(context.Context) (Session, error) {
			return &fakeSession{quotaKB: quotaKB}, nil
		})
	}
}

func TestRunnerFullPass(t *testing.T) {
	f := setupRunner(t)
	ctx := context.Background()

	f.runner.Inventory = staticInventory(
		axigen.DomainInfo{Name: "x.com", Status: "enabled"},
		axigen.DomainInfo{Name: "y.com", Status: "enabled"},
	)
	f.runner.Usage = staticUsage(
		axigen.UsageRow{Email: "alice@x.com", UsedKB: "4096"},
		axigen.UsageRow{Email: "bob@y.com", UsedKB: "1024"},
	)
	f.runner.DialerFor = quotaDialer(map[string]int64{"alice": 2097152, "bob": 1048576})

	report, err := f.runner.Run(ctx)
	require.NoError(t, err)
	require.Len(t, report.Servers, 1)
	assert.Equal(t, "mx1", report.Servers[0].Server)
	assert.Equal(t, 2, report.Servers[0].Domains)
	assert.Equal(t, 2, report.Servers[0].Success)
	assert.Empty(t, report.Servers[0].Error)

	var accounts []registry.Account
	require.NoError(t, f.store.DB().Order("email").Find(&accounts).Error)
	require.Len(t, accounts, 2)
	assert.Equal(t, "alice@x.com", accounts[0].Email)
	require.NotNil(t, accounts[0].AssignedMB)
	assert.Equal(t, int64(2048), *accounts[0].AssignedMB)
	require.NotNil(t, accounts[0].UsedMB)
	assert.Equal(t, int64(4), *accounts[0].UsedMB)

	// exactly one snapshot per run
	var snaps []registry.Snapshot
	require.NoError(t, f.store.DB().Find(&snaps).Error)
	require.Len(t, snaps, 1)
	assert.Equal(t, 1, snaps[0].ServersCount)
	assert.Equal(t, 2, snaps[0].DomainsCount)
	assert.Equal(t, 2, snaps[0].AccountsCount)
}

func TestRunnerSecondIdenticalRunEmitsNoEvents(t *testing.T) {
	f := setupRunner(t)
	ctx := context.Background()

	f.runner.Inventory = staticInventory(axigen.DomainInfo{Name: "x.com", Status: "enabled"})
	f.runner.Usage = staticUsage(axigen.UsageRow{Email: "alice@x.com", UsedKB: "10"})
	f.runner.DialerFor = quotaDialer(map[string]int64{"alice": 1024})

	_, err := f.runner.Run(ctx)
	require.NoError(t, err)

	var before int64
	require.NoError(t, f.store.DB().Model(&registry.DomainChange{}).Count(&before).Error)
	assert.Equal(t, int64(1), before) // the DOMAIN_ADDED from run one

	_, err = f.runner.Run(ctx)
	require.NoError(t, err)

	var after int64
	require.NoError(t, f.store.DB().Model(&registry.DomainChange{}).Count(&after).Error)
	assert.Equal(t, before, after)
}

func TestRunnerDomainTurnsDisabled(t *testing.T) {
	f := setupRunner(t)
	ctx := context.Background()

	f.runner.Inventory = staticInventory(axigen.DomainInfo{Name: "x.com", Status: "enabled"})
	f.runner.Usage = staticUsage(axigen.UsageRow{Email: "alice@x.com", UsedKB: "10"})
	f.runner.DialerFor = quotaDialer(map[string]int64{"alice": 1024})

	_, err := f.runner.Run(ctx)
	require.NoError(t, err)

	var accounts int64
	require.NoError(t, f.store.DB().Model(&registry.Account{}).Count(&accounts).Error)
	require.Equal(t, int64(1), accounts)

	// next run the domain comes back disabled and vanishes from the usage
	// report entirely
	f.runner.Inventory = staticInventory(axigen.DomainInfo{Name: "x.com", Status: "disabled"})
	f.runner.Usage = staticUsage()

	_, err = f.runner.Run(ctx)
	require.NoError(t, err)

	require.NoError(t, f.store.DB().Model(&registry.Account{}).Count(&accounts).Error)
	assert.Zero(t, accounts)

	var changes []registry.DomainChange
	require.NoError(t, f.store.DB().Where("event_type = ?", registry.EventDomainStatusChanged).Find(&changes).Error)
	require.Len(t, changes, 1)
	assert.Equal(t, "disabled", *changes[0].NewStatus)
}

func TestRunnerDomainVanishes(t *testing.T) {
	f := setupRunner(t)
	ctx := context.Background()

	f.runner.Inventory = staticInventory(
		axigen.DomainInfo{Name: "x.com", Status: "enabled"},
		axigen.DomainInfo{Name: "y.com", Status: "enabled"},
	)
	f.runner.Usage = staticUsage(axigen.UsageRow{Email: "bob@y.com", UsedKB: "10"})
	f.runner.DialerFor = quotaDialer(map[string]int64{"bob": 1024})

	_, err := f.runner.Run(ctx)
	require.NoError(t, err)

	f.runner.Inventory = staticInventory(axigen.DomainInfo{Name: "x.com", Status: "enabled"})
	f.runner.Usage = staticUsage()

	_, err = f.runner.Run(ctx)
	require.NoError(t, err)

	var domains []registry.Domain
	require.NoError(t, f.store.DB().Find(&domains).Error)
	require.Len(t, domains, 1)
	assert.Equal(t, "x.com", domains[0].Name)

	var accounts int64
	require.NoError(t, f.store.DB().Model(&registry.Account{}).Count(&accounts).Error)
	assert.Zero(t, accounts)

	var deleted int64
	require.NoError(t, f.store.DB().Model(&registry.DomainChange{}).
		Where("event_type = ?", registry.EventDomainDeleted).Count(&deleted).Error)
	assert.Equal(t, int64(1), deleted)
}

func TestRunnerUsageOutageSkipsAccountWork(t *testing.T) {
	f := setupRunner(t)
	ctx := context.Background()

	f.runner.Inventory = staticInventory(axigen.DomainInfo{Name: "x.com", Status: "enabled"})
	f.runner.Usage = staticUsage(axigen.UsageRow{Email: "alice@x.com", UsedKB: "10"})
	f.runner.DialerFor = quotaDialer(map[string]int64{"alice": 1024})

	_, err := f.runner.Run(ctx)
	require.NoError(t, err)

	// outage: inventory still reconciles, accounts stay untouched
	f.runner.Usage = func(context.Context, axigen.Target) ([]axigen.UsageRow, error) {
		return nil, errors.New("webadmin unreachable")
	}
	f.runner.DialerFor = func(axigen.Target) Dialer {
		return DialerFunc(func(context.Context) (Session, error) {
			t.Fatal("no session may be opened when the usage source is down")
			return nil, nil
		})
	}

	report, err := f.runner.Run(ctx)
	require.NoError(t, err)
	require.Len(t, report.Servers, 1)
	assert.True(t, report.Servers[0].UsageSkipped)

	var accounts int64
	require.NoError(t, f.store.DB().Model(&registry.Account{}).Count(&accounts).Error)
	assert.Equal(t, int64(1), accounts)
}

func TestRunnerInventoryFailureIsContained(t *testing.T) {
	f := setupRunner(t)
	ctx := context.Background()

	f.runner.Inventory = func(context.Context, axigen.Target) ([]axigen.DomainInfo, error) {
		return nil, errors.New("connection refused")
	}

	report, err := f.runner.Run(ctx)
	require.NoError(t, err)
	require.Len(t, report.Servers, 1)
	assert.Contains(t, report.Servers[0].Error, "inventory")

	// the run still writes its snapshot
	var snaps int64
	require.NoError(t, f.store.DB().Model(&registry.Snapshot{}).Count(&snaps).Error)
	assert.Equal(t, int64(1), snaps)
}

type memorySink struct {
	name    string
	payload []byte
}

func (m *memorySink) PutReport(_ context.Context, name string, payload []byte) error {
	m.name = name
	m.payload = payload
	return nil
}

func TestRunnerArchivesReport(t *testing.T) {
	f := setupRunner(t)
	ctx := context.Background()

	f.runner.Inventory = staticInventory(axigen.DomainInfo{Name: "x.com", Status: "enabled"})
	f.runner.Usage = staticUsage()
	f.runner.DialerFor = quotaDialer(nil)

	sink := &memorySink{}
	f.runner.Sink = sink

	report, err := f.runner.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, report.RunID, sink.name)
	assert.Contains(t, string(sink.payload), `"mx1"`)
}
