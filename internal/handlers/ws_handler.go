package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/classpulse-systems/classpulse/internal/hub"
	"github.com/classpulse-systems/classpulse/pkg/tokens"
)

// WSHandler upgrades push-channel connections and binds them into the
// hub under the caller's identity.
type WSHandler struct {
	hub      *hub.Hub
	tokenGen *tokens.TokenGenerator
	upgrader websocket.Upgrader
}

func NewWSHandler(h *hub.Hub, tokenGen *tokens.TokenGenerator, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		hub:      h,
		tokenGen: tokenGen,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// Serve handles GET /ws/notifications. A connection that presents no
// valid access token stays open but joins no groups.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	identity := h.resolveIdentity(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		slog.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := hub.NewClient(h.hub, conn, identity)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

// resolveIdentity reads the access token from the Authorization header
// or, for browser WebSocket clients that cannot set headers, from the
// access_token query parameter.
func (h *WSHandler) resolveIdentity(r *http.Request) hub.Identity {
	tokenString := ""
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			tokenString = parts[1]
		}
	}
	if tokenString == "" {
		tokenString = r.URL.Query().Get("access_token")
	}
	if tokenString == "" {
		return hub.Identity{}
	}

	claims, err := h.tokenGen.ValidateAccessToken(tokenString)
	if err != nil {
		return hub.Identity{}
	}

	return hub.Identity{
		UserID:        claims.UserID,
		Username:      claims.Username,
		Roles:         claims.Roles,
		Authenticated: true,
	}
}

func originChecker(allowedOrigins []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, allowed := range allowedOrigins {
			if allowed == "*" || allowed == origin {
				return true
			}
			if strings.HasPrefix(allowed, "*.") && strings.HasSuffix(origin, strings.TrimPrefix(allowed, "*")) {
				return true
			}
		}
		return false
	}
}
