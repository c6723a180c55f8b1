package di

import "github.com/samber/do/v2"

// RegisterSingletons registers all service providers as singletons.
// Services are registered in dependency order:
// 1. Config (no dependencies)
// 2. Logger (depends on Config)
// 3. Store (depends on Config)
// 4. Settings (depends on Store)
// 5. Registry (depends on Config, Store, Settings)
// 6. Cache (depends on Config)
// 7. Metrics (no dependencies)
// 8. Telemetry (depends on Config, Store, Registry)
// 9. Forwarder (depends on Config, Registry, Metrics, Logger)
// 10. Handler (depends on all above services)
// 11. Server (depends on Handler, Config).
func RegisterSingletons(i do.Injector) {
	do.Provide(i, NewConfig)
	do.Provide(i, NewLogger)
	do.Provide(i, NewStore)
	do.Provide(i, NewSettings)
	do.Provide(i, NewRegistry)
	do.Provide(i, NewCache)
	do.Provide(i, NewMetrics)
	do.Provide(i, NewTelemetry)
	do.Provide(i, NewForwarder)
	do.Provide(i, NewHandler)
	do.Provide(i, NewHTTPServer)
}
