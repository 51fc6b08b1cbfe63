package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/toughportal/config"
	"github.com/talkincode/toughportal/internal/device"
	"github.com/talkincode/toughportal/internal/domain"
	"github.com/talkincode/toughportal/internal/portal"
	"github.com/talkincode/toughportal/pkg/metrics"
)

type stubDevice struct {
	mu     sync.Mutex
	users  map[string]bool
	addErr error
}

func (d *stubDevice) AddUser(_ context.Context, user *device.HotspotUser) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.addErr != nil {
		return d.addErr
	}
	if d.users[user.Name] {
		return device.ErrUserExists
	}
	d.users[user.Name] = true
	return nil
}

func (d *stubDevice) SetUserCredentials(context.Context, string, string, string) error { return nil }

func (d *stubDevice) FindUser(context.Context, string) (*device.HotspotUser, error) { return nil, nil }

func (d *stubDevice) AddActive(context.Context, *device.ActiveSession) error { return nil }

func (d *stubDevice) Close() error { return nil }

func newTestApp(t *testing.T, dev device.HotspotClient) *Application {
	return newTestAppWith(t, dev, nil)
}

func newTestAppWith(t *testing.T, dev device.HotspotClient, mutate func(cfg *config.AppConfig)) *Application {
	t.Helper()
	cfg := *config.DefaultAppConfig
	cfg.System.Workdir = t.TempDir()
	cfg.Logger.FileEnable = false
	cfg.Database = config.DBConfig{Type: "sqlite", Name: ":memory:"}
	cfg.Portal.ContactRetentionDays = 30
	if mutate != nil {
		mutate(&cfg)
	}

	a := NewApplication(&cfg)
	a.OverrideDevice(dev)
	require.NoError(t, a.Init())
	t.Cleanup(a.Release)
	return a
}

func TestApplicationRegistersAndAudits(t *testing.T) {
	a := newTestApp(t, &stubDevice{users: map[string]bool{}})

	req := &portal.RegistrationRequest{Email: "A@B.com", Mac: "aa:bb:cc:dd:ee:ff", IP: "10.0.0.5"}
	_, err := a.Registrar().Register(context.Background(), req)
	require.NoError(t, err)

	contacts, err := a.Contacts().Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "a@b.com", contacts[0].Email)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", contacts[0].MacAddress)

	var logs []domain.PortalRegisterLog
	require.NoError(t, a.DB().Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "a@b.com", logs[0].Username)
	assert.Equal(t, "success", logs[0].Status)
	assert.Equal(t, "ok", logs[0].Provision)
	assert.Equal(t, "ok", logs[0].Activate)

	assert.Equal(t, int64(1), metrics.Counter(metrics.RegisterTotal))
	assert.Zero(t, metrics.Counter(metrics.RegisterFailed))
}

func TestApplicationAuditsFailures(t *testing.T) {
	a := newTestApp(t, &stubDevice{users: map[string]bool{}, addErr: assert.AnError})

	_, err := a.Registrar().Register(context.Background(), &portal.RegistrationRequest{Email: "a@b.com"})
	require.Error(t, err)

	var log domain.PortalRegisterLog
	require.NoError(t, a.DB().First(&log).Error)
	assert.Equal(t, "failure", log.Status)
	assert.Equal(t, "fatal", log.Provision)
	assert.Equal(t, "skipped", log.Activate)
	assert.Contains(t, log.ErrorMsg, assert.AnError.Error())
	assert.Equal(t, int64(1), metrics.Counter(metrics.RegisterFailed))
}

func TestApplicationUpsertModeIgnoresCase(t *testing.T) {
	a := newTestAppWith(t, &stubDevice{users: map[string]bool{}}, func(cfg *config.AppConfig) {
		cfg.Portal.ContactWriteMode = "Upsert"
	})

	for i := 0; i < 2; i++ {
		result, err := a.Registrar().Register(context.Background(), &portal.RegistrationRequest{Email: "a@b.com"})
		require.NoError(t, err)
		contact, _ := result.Step(portal.StepContact)
		assert.Equal(t, portal.OutcomeOK, contact.Kind, "%v", contact.Err)
	}

	contacts, err := a.Contacts().All(context.Background())
	require.NoError(t, err)
	assert.Len(t, contacts, 1)
}

func TestApplicationConcurrentSubmissions(t *testing.T) {
	dev := &stubDevice{users: map[string]bool{}}
	a := newTestApp(t, dev)

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := &portal.RegistrationRequest{Email: "a@b.com", Mac: "AA:BB:CC:DD:EE:FF", IP: "10.0.0.5"}
			_, errs[i] = a.Registrar().Register(context.Background(), req)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Len(t, dev.users, 1)

	contacts, err := a.Contacts().All(context.Background())
	require.NoError(t, err)
	assert.Len(t, contacts, 1)
}

func TestSchedClearExpireData(t *testing.T) {
	a := newTestApp(t, &stubDevice{users: map[string]bool{}})
	old := time.Now().Add(-60 * 24 * time.Hour)

	require.NoError(t, a.DB().Create(&domain.HotspotContact{ID: 1, Email: "old@b.com", CreatedAt: old, LastSeenAt: old}).Error)
	require.NoError(t, a.DB().Create(&domain.HotspotContact{ID: 2, Email: "new@b.com", CreatedAt: time.Now(), LastSeenAt: time.Now()}).Error)
	require.NoError(t, a.DB().Create(&domain.PortalRegisterLog{ID: 3, Username: "old@b.com", CreatedAt: old.Add(-60 * 24 * time.Hour)}).Error)

	a.SchedClearExpireData()

	contacts, err := a.Contacts().All(context.Background())
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "new@b.com", contacts[0].Email)

	var count int64
	require.NoError(t, a.DB().Model(&domain.PortalRegisterLog{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestNewHotspotClient(t *testing.T) {
	c, err := newHotspotClient(config.DeviceConfig{Transport: "rest", BaseURL: "http://10.0.0.1:85/rest/ip"})
	require.NoError(t, err)
	assert.IsType(t, &device.RestClient{}, c)

	c, err = newHotspotClient(config.DeviceConfig{Transport: "api", Host: "10.0.0.1"})
	require.NoError(t, err)
	assert.IsType(t, &device.APIClient{}, c)

	_, err = newHotspotClient(config.DeviceConfig{Transport: "api"})
	assert.Error(t, err)
	_, err = newHotspotClient(config.DeviceConfig{Transport: "snmp"})
	assert.Error(t, err)
}

func TestMonitorTasksRecordGauges(t *testing.T) {
	a := newTestApp(t, &stubDevice{users: map[string]bool{}})

	a.SchedSystemMonitorTask()
	a.SchedProcessMonitorTask()

	now := time.Now()
	points, err := metrics.Query(metrics.ProcessMemUse, now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	assert.NotEmpty(t, points)
}
