package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GeauxEric/flame/internal/apperrors"
)

// errorResponse is the JSON body returned for any failed request.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusFor maps an apperrors.Kind to the HTTP status the gateway
// layer reports it as (spec §4.G); no other layer is allowed to make
// this translation.
func statusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.NotFound:
		return http.StatusNotFound
	case apperrors.InvalidConfig, apperrors.InvalidState:
		return http.StatusBadRequest
	case apperrors.Uninitialized:
		return http.StatusServiceUnavailable
	case apperrors.Network:
		return http.StatusBadGateway
	case apperrors.Storage, apperrors.Internal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to an HTTP status and JSON body and writes it to c.
func writeError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	c.JSON(statusFor(kind), errorResponse{Code: string(kind), Message: err.Error()})
}
