// Package httpapi exposes the session manager's Gin HTTP surface: the
// frontend (session/task) verbs clients use and the backend (executor
// lifecycle) verbs executor processes use. Spec §6 replaces the original
// prototype's RPC surface with this HTTP transport, following the
// teacher's own Gin-based API layer rather than introducing gRPC, which
// no example in this codebase's stack uses as a direct dependency.
package httpapi

import (
	"go.uber.org/zap"

	"github.com/GeauxEric/flame/internal/config"
	"github.com/GeauxEric/flame/internal/logger"
	"github.com/GeauxEric/flame/internal/storage"
)

// Handler holds the HTTP handlers for every Flame route.
type Handler struct {
	store *storage.Storage
	cfg   *config.FlameContext
	log   *logger.Logger
}

// NewHandler constructs a Handler over store. cfg is used to validate an
// executor's declared application at registration time (spec's
// FlameContext.get_application, carried forward in SPEC_FULL).
func NewHandler(store *storage.Storage, cfg *config.FlameContext, log *logger.Logger) *Handler {
	return &Handler{
		store: store,
		cfg:   cfg,
		log:   log.With(zap.String("component", "httpapi")),
	}
}
