package di

import (
	"net/http"

	"github.com/samber/do/v2"

	"github.com/omarluq/llm-router/internal/api"
)

// HandlerService wraps the HTTP handler.
type HandlerService struct {
	Handler http.Handler
}

// NewHandler builds the full route tree with middleware.
func NewHandler(i do.Injector) (*HandlerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	settingsSvc := do.MustInvoke[*SettingsService](i)
	registrySvc := do.MustInvoke[*RegistryService](i)
	storeSvc := do.MustInvoke[*StoreService](i)
	cacheSvc := do.MustInvoke[*CacheService](i)
	metricsSvc := do.MustInvoke[*MetricsService](i)
	telemetrySvc := do.MustInvoke[*TelemetryService](i)
	forwarderSvc := do.MustInvoke[*ForwarderService](i)

	handler := api.NewRouter(api.Deps{
		Config:    cfgSvc.Config,
		Settings:  settingsSvc.Resolver,
		Registry:  registrySvc.Registry,
		Telemetry: storeSvc.Store,
		Cache:     cacheSvc.Cache,
		Metrics:   metricsSvc.Metrics,
		Capture:   telemetrySvc.Capture,
		Forwarder: forwarderSvc.Forwarder,
	})

	return &HandlerService{Handler: handler}, nil
}
