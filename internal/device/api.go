package device

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/go-routeros/routeros/v3"
	"github.com/go-routeros/routeros/v3/proto"
	"go.uber.org/zap"
)

// APIClient implements HotspotClient over the RouterOS API protocol
type APIClient struct {
	mu            sync.Mutex
	client        *routeros.Client
	addr          string
	username      string
	password      string
	timeout       time.Duration
	existsPattern string
}

// NewAPIClient creates a RouterOS API client. The connection is dialed lazily
// and re-dialed after a failed command.
// Parameters:
//   - host: RouterOS device IP address or hostname
//   - port: API port (default 8728 for unencrypted, 8729 for encrypted)
func NewAPIClient(host string, port int, username, password string, timeout time.Duration, existsPattern string) *APIClient {
	if port <= 0 {
		port = 8728 // Default RouterOS API port
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &APIClient{
		addr:          net.JoinHostPort(host, fmt.Sprintf("%d", port)),
		username:      username,
		password:      password,
		timeout:       timeout,
		existsPattern: existsPattern,
	}
}

// AddUser runs /ip/hotspot/user/add
func (c *APIClient) AddUser(ctx context.Context, user *HotspotUser) error {
	if user == nil || user.Name == "" {
		return fmt.Errorf("hotspot user name is required")
	}

	args := []string{
		"/ip/hotspot/user/add",
		"=name=" + user.Name,
		"=password=" + user.Password,
	}
	if user.MacAddress != "" {
		args = append(args, "=mac-address="+user.MacAddress)
	}
	if user.Profile != "" {
		args = append(args, "=profile="+user.Profile)
	}
	if user.Comment != "" {
		args = append(args, "=comment="+user.Comment)
	}

	if _, err := c.run(ctx, args); err != nil {
		if matchesExists(c.existsPattern, err.Error()) {
			return fmt.Errorf("create hotspot user %s: %w", user.Name, ErrUserExists)
		}
		return fmt.Errorf("create hotspot user: %w", err)
	}

	zap.L().Info("hotspot user created",
		zap.String("namespace", "device"),
		zap.String("user", user.Name),
	)
	return nil
}

// SetUserCredentials runs /ip/hotspot/user/set addressed by name
func (c *APIClient) SetUserCredentials(ctx context.Context, name, password, macAddress string) error {
	if name == "" {
		return fmt.Errorf("hotspot user name is required")
	}

	args := []string{
		"/ip/hotspot/user/set",
		"=numbers=" + name,
		"=password=" + password,
	}
	if macAddress != "" {
		args = append(args, "=mac-address="+macAddress)
	}
	if _, err := c.run(ctx, args); err != nil {
		return fmt.Errorf("update hotspot user: %w", err)
	}
	return nil
}

// FindUser runs /ip/hotspot/user/print filtered by name
func (c *APIClient) FindUser(ctx context.Context, name string) (*HotspotUser, error) {
	reply, err := c.run(ctx, []string{"/ip/hotspot/user/print", "?name=" + name})
	if err != nil {
		return nil, fmt.Errorf("list hotspot users: %w", err)
	}
	for _, re := range reply.Re {
		if u := parseUserSentence(re); u.Name == name {
			return u, nil
		}
	}
	return nil, nil
}

// AddActive runs /ip/hotspot/active/login, the API equivalent of the REST active/add
func (c *APIClient) AddActive(ctx context.Context, session *ActiveSession) error {
	if session == nil {
		return fmt.Errorf("active session is nil")
	}

	args := []string{
		"/ip/hotspot/active/login",
		"=user=" + session.User,
		"=password=" + session.Password,
		"=ip=" + session.Address,
		"=mac-address=" + session.MacAddress,
	}
	if _, err := c.run(ctx, args); err != nil {
		return fmt.Errorf("activate hotspot session: %w", err)
	}
	return nil
}

// Close closes the connection to Mikrotik RouterOS
func (c *APIClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		c.client.Close()
		c.client = nil
		zap.L().Info("Mikrotik connection closed", zap.String("addr", c.addr))
	}
	return nil
}

// run executes one command, bounded by the client timeout and ctx.
func (c *APIClient) run(ctx context.Context, args []string) (*routeros.Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		client, err := routeros.DialTimeout(c.addr, c.username, c.password, c.timeout)
		if err != nil {
			zap.L().Error("failed to connect to Mikrotik",
				zap.String("namespace", "device"),
				zap.String("addr", c.addr),
				zap.Error(err),
			)
			return nil, fmt.Errorf("mikrotik connection failed: %w", err)
		}
		c.client = client
	}

	type result struct {
		reply *routeros.Reply
		err   error
	}
	done := make(chan result, 1)
	go func(client *routeros.Client) {
		reply, err := client.RunArgs(args)
		done <- result{reply, err}
	}(c.client)

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		if r.err != nil {
			if _, isDevice := r.err.(*routeros.DeviceError); !isDevice {
				c.client.Close()
				c.client = nil
			}
		}
		return r.reply, r.err
	case <-ctx.Done():
		c.client.Close()
		c.client = nil
		return nil, ctx.Err()
	case <-timer.C:
		c.client.Close()
		c.client = nil
		return nil, fmt.Errorf("mikrotik command %s timed out after %s", args[0], c.timeout)
	}
}

func parseUserSentence(sentence *proto.Sentence) *HotspotUser {
	u := &HotspotUser{}
	if sentence == nil || sentence.Map == nil {
		return u
	}
	u.Name = sentence.Map["name"]
	u.MacAddress = sentence.Map["mac-address"]
	u.Profile = sentence.Map["profile"]
	u.Comment = sentence.Map["comment"]
	return u
}
