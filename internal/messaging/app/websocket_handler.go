package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"rural_skills_service/internal/messaging/domain"
	"rural_skills_service/pkg/logger"
	"rural_skills_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

const pingInterval = 10 * time.Minute

// MessagingWebsocketHandler 可包含所有需要的 UseCase
type MessagingWebsocketHandler struct {
	agg   *Aggregator
	views *ViewService
}

// NewMessagingWebsocketHandler create MessagingWebsocketHandler
func NewMessagingWebsocketHandler(agg *Aggregator, views *ViewService) *MessagingWebsocketHandler {
	return &MessagingWebsocketHandler{
		agg:   agg,
		views: views,
	}
}

// wsConn 單一連線的狀態, websocket 不允許同時寫入
type wsConn struct {
	conn   *websocket.Conn
	userID string
	log    *logger.LogInfo

	writeMu sync.Mutex
	view    *ViewSession
}

func (c *wsConn) send(resp domain.WSResponse) {
	b, err := json.Marshal(resp)
	if err != nil {
		c.log.Error("websocket marshal failed", zap.String("action", resp.Action), zap.Error(err))
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		c.log.Warn("write message error", zap.Error(err))
	}
}

func (c *wsConn) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.PingMessage, []byte("ping message"))
}

func (c *wsConn) closeView() {
	if c.view != nil {
		c.view.Close()
		c.view = nil
	}
}

// HandleConnection 是 WebSocket 連線的進入點
func (h *MessagingWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	userID, _ := conn.Locals(middlewares.TokenUserID).(string)
	c := &wsConn{conn: conn, userID: userID, log: logger.Log.With(zap.String("userID", userID))}
	c.log.Info("websocket connected")
	ticker := time.NewTicker(pingInterval)
	ctxClose, cancel := context.WithCancel(ctx)

	defer func() {
		ticker.Stop()
		cancel()
		c.closeView()
		c.log.Info("websocket close")
		conn.Close()
	}()

	//server發出ping之後client連線正常會回pong
	conn.SetPongHandler(func(appData string) error {
		c.log.Debug("received pong")
		return nil
	})

	// 定期發送 Ping
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := c.ping(); err != nil {
					c.log.Warn("ping error", zap.Error(err))
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				c.log.Info("connection closed")
			} else {
				//直接斷線 1006
				c.log.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		if mt != websocket.TextMessage {
			c.send(errorResponse("unsupported message type"))
			continue
		}
		h.textMessageAction(ctxClose, c, message)
	}
}

func (h *MessagingWebsocketHandler) textMessageAction(ctx context.Context, c *wsConn, msg []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		c.send(errorResponse("invalid request"))
		return
	}

	resp := domain.WSResponse{Action: req.Action, Success: false, Payload: map[string]interface{}{}}
	switch domain.Action(req.Action) {
	//開啟 view, partner_id 空白代表只看 inbox
	case domain.OpenChat:
		c.closeView()
		view, err := h.views.OpenView(ctx, c.userID, req.PartnerID, func(v domain.View) {
			c.send(domain.NewViewResponse(v))
		})
		if err != nil {
			resp.Error = err.Error()
		} else {
			c.view = view
			resp.Success = true
			resp.Payload["partner_id"] = req.PartnerID
		}

	case domain.CloseChat:
		c.closeView()
		resp.Success = true

	//message 寫入 db 後由 change feed 通知所有 view
	case domain.SendMessage:
		stored, err := h.agg.Send(ctx, c.userID, req.PartnerID, domain.SendPayload{Text: req.Content, AudioURL: req.AudioURL})
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["message_id"] = stored.ID
			resp.Payload["message"] = stored
		}

	case domain.DeleteMessage:
		if err := h.agg.Delete(ctx, c.userID, req.MessageID); err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["message_id"] = req.MessageID
		}

	//將目前 transcript 的未讀訊息改為已讀
	case domain.ReadMessage, domain.MarkRead:
		if c.view == nil {
			resp.Error = "no open chat"
		} else {
			resp.Success = true
			resp.Payload["dispatched"] = c.view.MarkRead()
		}

	default:
		resp.Error = "unknown action"
	}

	if resp.Error != "" {
		c.log.Warn("websocket err", zap.String("action", req.Action), zap.String("err", resp.Error))
	}
	c.send(resp)
}

func errorResponse(errorMsg string) domain.WSResponse {
	return domain.WSResponse{
		Action:  "error",
		Success: false,
		Error:   errorMsg,
	}
}
