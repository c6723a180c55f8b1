package di

import (
	"github.com/samber/do/v2"

	"github.com/omarluq/llm-router/internal/api"
)

// ServerService wraps the HTTP server.
type ServerService struct {
	Server *api.Server
}

// NewHTTPServer creates the HTTP server from the handler and config.
func NewHTTPServer(i do.Injector) (*ServerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	handlerSvc := do.MustInvoke[*HandlerService](i)

	server := api.NewServer(cfgSvc.Config.Server.Listen,
		handlerSvc.Handler, cfgSvc.Config.Server.EnableHTTP2)

	return &ServerService{Server: server}, nil
}
