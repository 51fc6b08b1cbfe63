package portal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/talkincode/toughportal/config"
	"github.com/talkincode/toughportal/internal/device"
	"github.com/talkincode/toughportal/internal/domain"
)

type fakeStore struct {
	mu       sync.Mutex
	err      error
	inserted []*domain.HotspotContact
	upserted []*domain.HotspotContact
}

func (s *fakeStore) Insert(_ context.Context, c *domain.HotspotContact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.inserted = append(s.inserted, c)
	return nil
}

func (s *fakeStore) Upsert(_ context.Context, c *domain.HotspotContact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.upserted = append(s.upserted, c)
	return nil
}

func (s *fakeStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inserted) + len(s.upserted)
}

type credentialUpdate struct {
	Name     string
	Password string
	Mac      string
}

// fakeDevice mimics a router that keeps users by name.
type fakeDevice struct {
	mu        sync.Mutex
	users     map[string]*device.HotspotUser
	addErr    error
	setErr    error
	findErr   error
	activeErr error
	hang      bool

	added    []*device.HotspotUser
	updates  []credentialUpdate
	finds    []string
	sessions []*device.ActiveSession
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{users: map[string]*device.HotspotUser{}}
}

func (d *fakeDevice) AddUser(ctx context.Context, user *device.HotspotUser) error {
	if d.hang {
		<-ctx.Done()
		return ctx.Err()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.added = append(d.added, user)
	if d.addErr != nil {
		return d.addErr
	}
	if _, ok := d.users[user.Name]; ok {
		return fmt.Errorf("create hotspot user %s: %w", user.Name, device.ErrUserExists)
	}
	copied := *user
	d.users[user.Name] = &copied
	return nil
}

func (d *fakeDevice) SetUserCredentials(_ context.Context, name, password, mac string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.updates = append(d.updates, credentialUpdate{Name: name, Password: password, Mac: mac})
	if d.setErr != nil {
		return d.setErr
	}
	u, ok := d.users[name]
	if !ok {
		return errors.New("no such item")
	}
	u.Password = password
	if mac != "" {
		u.MacAddress = mac
	}
	return nil
}

func (d *fakeDevice) FindUser(_ context.Context, name string) (*device.HotspotUser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.finds = append(d.finds, name)
	if d.findErr != nil {
		return nil, d.findErr
	}
	u, ok := d.users[name]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (d *fakeDevice) AddActive(_ context.Context, session *device.ActiveSession) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessions = append(d.sessions, session)
	return d.activeErr
}

func (d *fakeDevice) Close() error { return nil }

func (d *fakeDevice) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.added) + len(d.updates) + len(d.finds) + len(d.sessions)
}

type published struct {
	Topic string
	Args  []interface{}
}

type fakeBus struct {
	mu     sync.Mutex
	events []published
}

func (b *fakeBus) Publish(topic string, args ...interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, published{Topic: topic, Args: args})
}

func testPortalConfig(mutate func(cfg *config.PortalConfig)) config.PortalConfig {
	cfg := config.DefaultAppConfig.Portal
	if mutate != nil {
		mutate(&cfg)
	}
	return cfg
}

func newTestPolicy(t *testing.T, mutate func(cfg *config.PortalConfig)) *Policy {
	t.Helper()
	p, err := NewPolicy(testPortalConfig(mutate))
	require.NoError(t, err)
	return p
}
