package portal

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/talkincode/toughportal/internal/device"
	"go.uber.org/zap"
)

// AccountProvisioner ensures the hotspot user exists with the current credentials.
type AccountProvisioner struct {
	client        device.HotspotClient
	strategy      ProvisionStrategy
	profile       string
	commentPrefix string
}

func NewAccountProvisioner(client device.HotspotClient, policy *Policy) *AccountProvisioner {
	return &AccountProvisioner{
		client:        client,
		strategy:      policy.Strategy,
		profile:       policy.Profile,
		commentPrefix: policy.CommentPrefix,
	}
}

// Provision creates the user, or refreshes its credentials when the name is
// taken. Any other failure is fatal and carries a ProvisioningError.
func (p *AccountProvisioner) Provision(ctx context.Context, req *RegistrationRequest, creds Credentials) StepResult {
	result := StepResult{Step: StepProvision}

	if p.strategy == StrategyCheckFirst {
		existing, err := p.client.FindUser(ctx, creds.Username)
		if err != nil {
			zap.L().Warn("hotspot user lookup failed, creating instead",
				zap.String("namespace", "portal"),
				zap.String("user", creds.Username),
				zap.Error(err),
			)
		}
		if err == nil && existing != nil {
			return p.refresh(ctx, result, req, creds)
		}
	}

	user := &device.HotspotUser{
		Name:       creds.Username,
		Password:   creds.Password,
		MacAddress: req.Mac,
		Profile:    p.profile,
		Comment:    strings.TrimSpace(p.commentPrefix + " " + creds.Username),
	}
	err := p.client.AddUser(ctx, user)
	switch {
	case err == nil:
		result.Kind = OutcomeOK
		result.Detail = "created"
		return result
	case errors.Is(err, device.ErrUserExists):
		return p.refresh(ctx, result, req, creds)
	default:
		return p.fail(result, creds, err)
	}
}

func (p *AccountProvisioner) refresh(ctx context.Context, result StepResult, req *RegistrationRequest, creds Credentials) StepResult {
	if err := p.client.SetUserCredentials(ctx, creds.Username, creds.Password, req.Mac); err != nil {
		return p.fail(result, creds, err)
	}
	result.Kind = OutcomeOK
	result.Detail = "refreshed"
	return result
}

func (p *AccountProvisioner) fail(result StepResult, creds Credentials, err error) StepResult {
	zap.L().Error("failed to provision hotspot user",
		zap.String("namespace", "portal"),
		zap.String("user", creds.Username),
		zap.Error(err),
	)
	result.Kind = OutcomeFatal
	result.Err = &ProvisioningError{Status: http.StatusBadGateway, Err: err}
	return result
}
