package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin проверяется CORS-политикой шлюза.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamProgress отдает кадры оценщика прогресса через WebSocket.
// Соединение закрывается после кадра завершения или при уходе клиента.
func (h *CreationHandler) streamProgress(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, APIError{Message: "Unauthorized: Missing token"})
		return
	}
	claims, err := h.verifier(c.Request.Context(), token)
	if err != nil {
		h.logger.Warn("Invalid token for progress stream", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, APIError{Message: "Unauthorized: Invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrader уже ответил клиенту.
		h.logger.Error("Failed to upgrade connection", zap.Stringer("userID", claims.UserID), zap.Error(err))
		return
	}
	log := h.logger.With(zap.Stringer("userID", claims.UserID))
	log.Debug("Progress stream opened")

	frames, unsubscribe := h.wizards.For(claims.UserID).SubscribeProgress()
	defer func() {
		unsubscribe()
		_ = conn.Close()
		log.Debug("Progress stream closed")
	}()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn("Progress stream read error", zap.Error(err))
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case frame := <-frames:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(frame); err != nil {
				log.Warn("Failed to write progress frame", zap.Error(err))
				return
			}
			if frame.Final() {
				reason := "done"
				if frame.Cancelled {
					reason = "cancelled"
				}
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
