package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/triageops/console/internal/api/v1"
	"github.com/triageops/console/internal/api/ws"
	"github.com/triageops/console/internal/platform"
	"github.com/triageops/console/internal/session"
)

func registerAPIRoutes(api huma.API, manager *session.Manager, platformClient *platform.Client) {
	v1.RegisterSessionRoutes(api, manager)
	v1.RegisterQueryRoutes(api, platformClient)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/sessions/{sessionID}", hub.ServeSession)
}
