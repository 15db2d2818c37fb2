// Package api provides the WebSocket handler for streaming position signals.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/onnwee/trailmark/internal/geo"
	"github.com/onnwee/trailmark/internal/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: reuse the CORS allowlist from config here
		return true
	},
}

// PositionFrame is one client-sent position update on the socket.
type PositionFrame struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// PositionWebSocketHandlers holds dependencies for the position WebSocket handler.
type PositionWebSocketHandlers struct {
	signals *SignalHandlers
}

// NewPositionWebSocketHandlers creates a new PositionWebSocketHandlers instance.
func NewPositionWebSocketHandlers(signals *SignalHandlers) *PositionWebSocketHandlers {
	return &PositionWebSocketHandlers{signals: signals}
}

// StreamPositionSignals handles WebSocket connections carrying a stream of
// position updates. GET /projects/{id}/signals/ws?username=
//
// Each received frame is evaluated exactly like a POST position signal and
// the evaluation result is written back on the same socket.
func (h *PositionWebSocketHandlers) StreamPositionSignals(w http.ResponseWriter, r *http.Request, projectID int) {
	ctx := r.Context()

	username, ok := resolveUsername(w, r, r.URL.Query().Get("username"))
	if !ok {
		return
	}
	ctx = middleware.SetParticipant(ctx, username)

	// Verify the project exists before upgrading
	if _, err := h.signals.store.GetProject(ctx, projectID); err != nil {
		WriteStoreError(w, r, err)
		return
	}

	locations, err := h.signals.store.ProjectLocations(ctx, projectID)
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}

	sess, err := h.signals.sessions.Session(projectID, username)
	if err != nil {
		ctx := middleware.SetErrorCode(ctx, ErrCodeAuthRequired)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthRequired, "username is required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.ErrorContext(ctx, "failed to upgrade websocket connection",
			"error", err,
			"project_id", projectID,
		)
		return
	}

	requestID := middleware.GetRequestID(ctx)
	slog.InfoContext(ctx, "websocket client streaming position signals",
		"project_id", projectID,
		"request_id", requestID,
	)

	defer func() {
		conn.Close()
		slog.InfoContext(ctx, "websocket client disconnected",
			"project_id", projectID,
			"request_id", requestID,
		)
	}()

	for {
		var frame PositionFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.WarnContext(ctx, "websocket connection closed unexpectedly",
					"error", err,
					"project_id", projectID,
				)
			}
			break
		}

		if errMsg := validateCoordinates(frame.Lat, frame.Lon); errMsg != "" {
			if err := conn.WriteJSON(ErrorResponse{Error: ErrorDetail{
				Code:    ErrCodeValidation,
				Message: errMsg,
			}}); err != nil {
				break
			}
			continue
		}

		resp := h.signals.evaluatePosition(ctx, sess, locations, geo.Point{Lat: frame.Lat, Lon: frame.Lon})
		if err := conn.WriteJSON(resp); err != nil {
			slog.WarnContext(ctx, "failed to write websocket response",
				"error", err,
				"project_id", projectID,
			)
			break
		}
	}
}
