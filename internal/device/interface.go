package device

import (
	"context"
	"errors"
	"strings"
)

// ErrUserExists is returned by AddUser when the device already has a user with that name.
var ErrUserExists = errors.New("hotspot user already exists")

// DefaultExistsPattern is the fragment RouterOS puts in its duplicate-user failure.
const DefaultExistsPattern = "already have user"

// HotspotUser represents a hotspot account on the access-control device
type HotspotUser struct {
	Name       string `json:"name"`
	Password   string `json:"password,omitempty"`
	MacAddress string `json:"mac-address,omitempty"`
	Profile    string `json:"profile,omitempty"`
	Comment    string `json:"comment,omitempty"`
}

// ActiveSession binds a hotspot user to the device's current attachment
type ActiveSession struct {
	User       string `json:"user"`
	Password   string `json:"-"` // only the API transport logs in with it
	Address    string `json:"address"`
	MacAddress string `json:"mac-address"`
}

// HotspotClient is the interface for hotspot management transports.
// Implementations: RestClient (RouterOS REST) and APIClient (RouterOS API).
type HotspotClient interface {
	// AddUser creates a hotspot user; it returns an error wrapping ErrUserExists
	// when the name is already taken.
	AddUser(ctx context.Context, user *HotspotUser) error

	// SetUserCredentials refreshes the password (and MAC binding when macAddress
	// is set) of an existing user
	SetUserCredentials(ctx context.Context, name, password, macAddress string) error

	// FindUser looks a user up by name; it returns nil, nil when absent
	FindUser(ctx context.Context, name string) (*HotspotUser, error)

	// AddActive authorizes an address/MAC pair for the user
	AddActive(ctx context.Context, session *ActiveSession) error

	// Close releases the transport
	Close() error
}

// matchesExists reports whether a device failure message means the user already exists.
func matchesExists(pattern, message string) bool {
	if pattern == "" {
		pattern = DefaultExistsPattern
	}
	return strings.Contains(strings.ToLower(message), strings.ToLower(pattern))
}
