// internal/service/quote/interfaces/push_handler.go
package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"tablecover/internal/pkg/logger"
	"tablecover/internal/service/quote/application"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// PushHandler 通过 WebSocket 把会话快照推送给页面，页面无需轮询
type PushHandler struct {
	service  *application.QuoteApplicationService
	upgrader websocket.Upgrader
}

func NewPushHandler(service *application.QuoteApplicationService) *PushHandler {
	return &PushHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 同一站点的营销页面嵌入计算器，放行所有来源
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *PushHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", h.serveWs)
}

func (h *PushHandler) serveWs(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	if id == "" {
		id = sessionID(r)
	}
	ctx := extract(r)

	// 1. 先订阅，确保握手之后的变化不会丢失
	updates, cancel, err := h.service.Subscribe(ctx, id)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	initial, err := h.service.Snapshot(ctx, id)
	if err != nil {
		cancel()
		writeError(w, r, err, nil)
		return
	}

	// 2. 升级为 WebSocket
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		cancel()
		logger.Ctx(ctx).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	logger.Ctx(ctx).Debug().Str("session_id", id).Msg("snapshot stream opened")

	// 3. 读循环只处理 pong 和关闭帧；连接断开时通知写循环退出
	closed := make(chan struct{})
	go readPump(conn, closed)
	writePump(ctx, conn, initial, updates, closed)

	cancel()
	conn.Close()
	logger.Ctx(ctx).Debug().Str("session_id", id).Msg("snapshot stream closed")
}

func readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writePump(ctx context.Context, conn *websocket.Conn, initial *application.Snapshot, updates <-chan *application.Snapshot, closed <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if err := writeSnapshot(conn, initial); err != nil {
		return
	}
	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				// 会话已被回收
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "session expired"))
				return
			}
			if err := writeSnapshot(conn, snap); err != nil {
				logger.Ctx(ctx).Debug().Err(err).Msg("snapshot write failed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-ctx.Done():
			return
		}
	}
}

func writeSnapshot(conn *websocket.Conn, snap *application.Snapshot) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(snap)
}
