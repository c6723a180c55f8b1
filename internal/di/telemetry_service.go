package di

import (
	"time"

	"github.com/samber/do/v2"

	"github.com/omarluq/llm-router/internal/capture"
)

const writerDrainTimeout = 5 * time.Second

// TelemetryService wraps the capture pipeline: the async writer and the
// capture front-end that feeds it.
type TelemetryService struct {
	Writer  *capture.Writer
	Capture *capture.Capture
}

// NewTelemetry creates and starts the telemetry write pipeline.
func NewTelemetry(i do.Injector) (*TelemetryService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	storeSvc := do.MustInvoke[*StoreService](i)
	registrySvc := do.MustInvoke[*RegistryService](i)

	writer := capture.NewWriter(storeSvc.Store, cfgSvc.Config.Telemetry.Buffer)
	writer.Start()

	c := capture.New(writer, registrySvc.Registry)

	return &TelemetryService{Writer: writer, Capture: c}, nil
}

// Shutdown drains the write queue so records captured just before exit
// still reach the database.
func (t *TelemetryService) Shutdown() error {
	if t.Writer != nil {
		return t.Writer.Close(writerDrainTimeout)
	}
	return nil
}
