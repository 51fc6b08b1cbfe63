package app

import (
	"context"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/talkincode/toughportal/internal/domain"
	"github.com/talkincode/toughportal/internal/portal"
	"github.com/talkincode/toughportal/pkg/metrics"
	"go.uber.org/zap"
)

func (a *Application) initEvents() {
	a.bus = EventBus.New()
	if err := a.bus.Subscribe(portal.TopicRegistered, a.onRegistered); err != nil {
		zap.S().Errorf("subscribe %s error %s", portal.TopicRegistered, err.Error())
	}
}

// onRegistered updates the counters and writes the audit row for one registration.
func (a *Application) onRegistered(result *portal.Result) {
	metrics.Incr(metrics.RegisterTotal)
	if result.Err != nil {
		metrics.Incr(metrics.RegisterFailed)
	}

	log := &domain.PortalRegisterLog{
		Username:  result.Credentials.Username,
		Mac:       result.Request.Mac,
		Ip:        result.Request.IP,
		Contact:   portal.OutcomeSkipped.String(),
		Provision: portal.OutcomeSkipped.String(),
		Activate:  portal.OutcomeSkipped.String(),
		Status:    "success",
		CreatedAt: time.Now(),
	}
	for _, step := range result.Steps {
		switch step.Step {
		case portal.StepContact:
			log.Contact = step.Kind.String()
			if step.Kind == portal.OutcomeRecoverable {
				metrics.Incr(metrics.ContactWarnings)
			}
		case portal.StepProvision:
			log.Provision = step.Kind.String()
		case portal.StepActivate:
			log.Activate = step.Kind.String()
			if step.Kind == portal.OutcomeRecoverable {
				metrics.Incr(metrics.ActivateWarnings)
			}
		}
	}
	if result.Err != nil {
		log.Status = "failure"
		log.ErrorMsg = result.Err.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.registerLogs.Create(ctx, log); err != nil {
		zap.L().Warn("failed to write register log",
			zap.String("namespace", "store"),
			zap.String("user", log.Username),
			zap.Error(err),
		)
	}
}
