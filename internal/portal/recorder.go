package portal

import (
	"context"
	"time"

	"github.com/talkincode/toughportal/internal/domain"
	"github.com/talkincode/toughportal/internal/repository"
	"go.uber.org/zap"
)

// ContactStore is the write side of the contacts repository
type ContactStore interface {
	Insert(ctx context.Context, contact *domain.HotspotContact) error
	Upsert(ctx context.Context, contact *domain.HotspotContact) error
}

// ContactRecorder persists every registration attempt. Failures are warnings.
type ContactRecorder struct {
	store   ContactStore
	mode    string
	timeout time.Duration
}

func NewContactRecorder(store ContactStore, mode string, timeout time.Duration) *ContactRecorder {
	return &ContactRecorder{store: store, mode: mode, timeout: timeout}
}

// Record writes the contact row; it never fails the workflow.
func (r *ContactRecorder) Record(ctx context.Context, req *RegistrationRequest, creds Credentials) StepResult {
	result := StepResult{Step: StepContact}

	contact := &domain.HotspotContact{
		Email:      req.Email,
		Whatsapp:   req.Whatsapp,
		MacAddress: req.Mac,
		IpAddress:  req.IP,
	}
	if creds.Generated {
		hash, err := hashSecret(creds.Password)
		if err != nil {
			return r.warn(result, err)
		}
		contact.SecretHash = hash
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var err error
	if r.mode == repository.WriteModeUpsert {
		err = r.store.Upsert(ctx, contact)
		result.Detail = "upserted"
	} else {
		err = r.store.Insert(ctx, contact)
		result.Detail = "inserted"
	}
	if err != nil {
		return r.warn(result, err)
	}
	result.Kind = OutcomeOK
	return result
}

func (r *ContactRecorder) warn(result StepResult, err error) StepResult {
	zap.L().Warn("failed to record hotspot contact",
		zap.String("namespace", "portal"),
		zap.Error(err),
	)
	result.Kind = OutcomeRecoverable
	result.Detail = ""
	result.Err = err
	return result
}
