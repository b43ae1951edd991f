package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingPeriod   = wsPongWait * 9 / 10
	wsSubscribeBuf = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // доступ ограничивается шлюзом
	},
}

// TransitionsWebSocket стрим переходов статуса. С owner (заголовок или
// параметр запроса) приходят только переходы мониторов этого владельца
func (h *Handlers) TransitionsWebSocket(c *gin.Context) {
	owner := c.GetHeader(OwnerHeader)
	if owner == "" {
		owner = c.Query("owner")
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	messages, unsubscribe := h.hub.Subscribe(wsSubscribeBuf)
	defer unsubscribe()

	h.logger.Info("websocket connected for transitions", "owner", owner, "subscribers", h.hub.Subscribers())

	if err := conn.WriteJSON(SuccessResponse("connected", gin.H{"owner": owner})); err != nil {
		h.logger.Debug("websocket write error", "error", err)
		return
	}

	// Чтение нужно только для close/pong фреймов
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.logger.Debug("transitions websocket disconnected", "error", err)
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case msg, ok := <-messages:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				// хаб закрыл подписку: медленный клиент или остановка сервиса
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if !ownedBy(msg, owner) {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug("websocket write error", "error", err)
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func ownedBy(msg []byte, owner string) bool {
	if owner == "" {
		return true
	}
	var t struct {
		Owner string `json:"owner"`
	}
	if err := json.Unmarshal(msg, &t); err != nil {
		return false
	}
	return t.Owner == owner
}
