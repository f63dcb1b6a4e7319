package handler

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"

	ws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/nexesmission/ardhi-backend/internal/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket connections for the live dashboard
type WebSocketHandler struct {
	hub            *websocket.Hub
	apiKeys        []string
	allowedOrigins map[string]bool
	upgrader       ws.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler. An empty key list
// disables the key check, matching the HTTP middleware in development.
func NewWebSocketHandler(hub *websocket.Hub, apiKeys []string, allowedOrigins []string) *WebSocketHandler {
	originMap := make(map[string]bool)
	for _, origin := range allowedOrigins {
		originMap[origin] = true
	}

	h := &WebSocketHandler{
		hub:            hub,
		apiKeys:        apiKeys,
		allowedOrigins: originMap,
	}

	h.upgrader = ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}

	return h
}

// checkOrigin validates the request origin against allowed origins
func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// Allow requests with no Origin header (e.g., same-origin or non-browser clients)
		return true
	}

	if h.allowedOrigins[origin] {
		return true
	}

	log.Warn().
		Str("origin", origin).
		Msg("WebSocket connection rejected: origin not allowed")
	return false
}

func (h *WebSocketHandler) keyAllowed(candidate string) bool {
	if len(h.apiKeys) == 0 {
		return true
	}
	candidateSum := sha256.Sum256([]byte(candidate))
	for _, key := range h.apiKeys {
		keySum := sha256.Sum256([]byte(key))
		if subtle.ConstantTimeCompare(candidateSum[:], keySum[:]) == 1 {
			return true
		}
	}
	return false
}

// HandleWS handles WebSocket connection requests at GET /ws. Browsers cannot
// set an Authorization header on the upgrade, so the key rides in a query
// parameter.
func (h *WebSocketHandler) HandleWS(c echo.Context) error {
	if !h.keyAllowed(c.QueryParam("key")) {
		log.Debug().Msg("WebSocket connection rejected: invalid key")
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid key")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return err
	}

	client := websocket.NewClient(conn, h.hub)
	h.hub.Register(client)

	log.Info().
		Str("client_id", client.ID()).
		Msg("WebSocket client connected")

	go client.WritePump()
	go client.ReadPump()

	return nil
}
