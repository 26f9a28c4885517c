package gateway_http

import (
	"encoding/json"
	"net/http"

	"docvault/internal/transport"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func renderJSON(w http.ResponseWriter, statusCode int, v any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to write JSON response", zap.Error(err))
	}
}

func renderJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message, Code: statusCode})
}

// renderCallError renders the outcome of a failed RPC call. Business errors
// keep their status and message. Timeouts and broker failures are rendered
// generically and logged with the correlation id, since the outcome of the
// remote operation is unknown.
func renderCallError(w http.ResponseWriter, r *http.Request, pattern string, err error, logger *zap.Logger) {
	if rpcErr, ok := transport.AsError(err); ok {
		if rpcErr.Kind == transport.KindInternal {
			logger.Error("Downstream service failed",
				zap.String("pattern", pattern),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		}
		renderJSONError(w, rpcErr.Message, rpcErr.StatusCode)
		return
	}

	status := transport.HTTPStatus(err)
	logger.Error("RPC call failed",
		zap.String("pattern", pattern),
		zap.String("correlation_id", transport.CorrelationID(err)),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Int("status", status),
		zap.Error(err))
	renderJSONError(w, http.StatusText(status), status)
}
