package di

import (
	"github.com/samber/do/v2"

	"github.com/omarluq/llm-router/internal/forward"
)

// ForwarderService wraps the upstream forwarder.
type ForwarderService struct {
	Forwarder *forward.Forwarder
}

// NewForwarder creates the forwarder routing to the active provider.
func NewForwarder(i do.Injector) (*ForwarderService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	registrySvc := do.MustInvoke[*RegistryService](i)
	metricsSvc := do.MustInvoke[*MetricsService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)

	f := forward.New(registrySvc.Registry, metricsSvc.Metrics, forward.Options{
		Timeout: cfgSvc.Config.Server.GetRequestTimeoutOption(),
		Logger:  loggerSvc.Logger,
	})

	return &ForwarderService{Forwarder: f}, nil
}
