package portal

import (
	"context"
	"time"

	"github.com/talkincode/toughportal/internal/device"
	"go.uber.org/zap"
)

// TopicRegistered is published after every workflow run that passed validation.
const TopicRegistered = "portal:registered"

// Publisher is satisfied by EventBus.Bus
type Publisher interface {
	Publish(topic string, args ...interface{})
}

// Result is the full record of one registration.
type Result struct {
	Request     *RegistrationRequest
	Credentials Credentials
	Steps       []StepResult
	Response    *LoginResponse
	Err         error
	Elapsed     time.Duration
}

// Step returns the result of the named step, if it ran.
func (r *Result) Step(name string) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Step == name {
			return s, true
		}
	}
	return StepResult{}, false
}

// Registrar runs normalize, record, provision, activate and respond in order.
type Registrar struct {
	policy      *Policy
	recorder    *ContactRecorder
	provisioner *AccountProvisioner
	activator   *SessionActivator
	responder   *LoginResponder
	bus         Publisher
}

func NewRegistrar(policy *Policy, store ContactStore, client device.HotspotClient, bus Publisher) *Registrar {
	return &Registrar{
		policy:      policy,
		recorder:    NewContactRecorder(store, policy.WriteMode, policy.StoreTimeout),
		provisioner: NewAccountProvisioner(client, policy),
		activator:   NewSessionActivator(client, policy.ActivateSession),
		responder:   NewLoginResponder(policy.ResponseMode, policy.Popup),
		bus:         bus,
	}
}

// Register handles one registration. Validation errors are returned before
// the store or the device is contacted; a provisioning failure is returned as
// a *ProvisioningError together with the partial result.
func (g *Registrar) Register(ctx context.Context, req *RegistrationRequest) (*Result, error) {
	start := time.Now()
	if err := g.policy.Normalize(req); err != nil {
		return nil, err
	}

	creds, err := g.policy.Credentials(req)
	if err != nil {
		return nil, err
	}
	result := &Result{Request: req, Credentials: creds}
	defer func() {
		result.Elapsed = time.Since(start)
		g.publish(result)
	}()

	result.Steps = append(result.Steps, g.recorder.Record(ctx, req, creds))

	provision := g.provisioner.Provision(ctx, req, creds)
	result.Steps = append(result.Steps, provision)
	if provision.Kind == OutcomeFatal {
		result.Err = provision.Err
		return result, provision.Err
	}

	result.Steps = append(result.Steps, g.activator.Activate(ctx, req, creds))

	resp, err := g.responder.Respond(creds, req.LinkLogin)
	if err != nil {
		result.Err = err
		return result, err
	}
	result.Response = resp

	zap.L().Info("hotspot registration completed",
		zap.String("namespace", "portal"),
		zap.String("user", creds.Username),
		zap.String("mac", req.Mac),
		zap.String("ip", req.IP),
		zap.String("provision", provision.Detail),
	)
	return result, nil
}

func (g *Registrar) publish(result *Result) {
	if g.bus == nil {
		return
	}
	g.bus.Publish(TopicRegistered, result)
}
