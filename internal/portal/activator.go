package portal

import (
	"context"

	"github.com/talkincode/toughportal/internal/device"
	"go.uber.org/zap"
)

// SessionActivator authorizes the visitor's current attachment on the device.
type SessionActivator struct {
	client  device.HotspotClient
	enabled bool
}

func NewSessionActivator(client device.HotspotClient, enabled bool) *SessionActivator {
	return &SessionActivator{client: client, enabled: enabled}
}

// Activate needs both mac and ip; a device failure is only a warning since the
// login form still completes authentication.
func (a *SessionActivator) Activate(ctx context.Context, req *RegistrationRequest, creds Credentials) StepResult {
	result := StepResult{Step: StepActivate, Kind: OutcomeSkipped}
	if !a.enabled {
		result.Detail = "disabled"
		return result
	}
	if req.Mac == "" || req.IP == "" {
		result.Detail = "no mac/ip"
		return result
	}

	err := a.client.AddActive(ctx, &device.ActiveSession{
		User:       creds.Username,
		Password:   creds.Password,
		Address:    req.IP,
		MacAddress: req.Mac,
	})
	if err != nil {
		zap.L().Warn("failed to activate hotspot session",
			zap.String("namespace", "portal"),
			zap.String("user", creds.Username),
			zap.String("ip", req.IP),
			zap.Error(err),
		)
		result.Kind = OutcomeRecoverable
		result.Err = err
		return result
	}
	result.Kind = OutcomeOK
	result.Detail = "activated"
	return result
}
