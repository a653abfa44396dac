package connection

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"condorserver/condor"
	"condorserver/condor/broadcast"
	"condorserver/models"

	"go.uber.org/zap"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	pingPeriod   = 10 * time.Second // 10秒ごとにPingを送信
	readDeadline = 60 * time.Second // Pongが来なければ切断
	writeWait    = 10 * time.Second
	sendBuffer   = 32
)

// Gateway はWebSocket接続を受け付け、ルームのイベントを流すための窓口
type Gateway struct {
	Engine   *condor.Engine
	Hub      *Hub
	Sessions *SessionStore
	Upgrader websocket.Upgrader
	Logger   *zap.Logger
}

// sessionMessage は接続直後に送る再接続用のセッションID
type sessionMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	PlayerID  uint   `json:"playerId"`
}

// HandleConnections はWebSocket接続へのアップグレードを行い、切断されるまでブロックする。
// userIDは認証済みのユーザー
func (g *Gateway) HandleConnections(ctx context.Context, w http.ResponseWriter, r *http.Request, userID, gameID uint) {
	logger := g.Logger

	// セッションIDがあれば同じユーザー・同じゲームの接続か確かめる
	if sessionID := r.Header.Get("SessionID"); sessionID != "" && g.Sessions != nil {
		info, err := g.Sessions.Restore(ctx, sessionID)
		if errors.Is(err, ErrSessionNotFound) {
			http.Error(w, "Invalid or expired session ID", http.StatusUnauthorized)
			return
		}
		if err != nil {
			logger.Error("Failed to restore session", zap.Error(err))
			http.Error(w, "Failed to restore session", http.StatusInternalServerError)
			return
		}
		if info.UserID != userID || info.GameID != gameID {
			http.Error(w, "Session does not match", http.StatusUnauthorized)
			return
		}
	}

	player, err := g.Engine.PlayerForUser(ctx, gameID, userID)
	if err != nil {
		if condor.IsKind(err, condor.KindNotFound) {
			http.Error(w, "Not a member of this room", http.StatusForbidden)
			return
		}
		logger.Error("Failed to fetch player", zap.Error(err))
		http.Error(w, "Failed to fetch player", http.StatusInternalServerError)
		return
	}

	conn, err := g.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgradeが失敗時のレスポンスを書いている
		logger.Error("Error upgrading WebSocket", zap.Error(err))
		return
	}

	client := &models.Client{
		ID:       uuid.New().String(),
		Conn:     conn,
		UserID:   userID,
		GameID:   gameID,
		PlayerID: player.ID,
		Send:     make(chan []byte, sendBuffer),
	}
	g.Hub.Register(client)

	// 切断後の処理はリクエストのキャンセルに巻き込まれないようにする
	bg := context.WithoutCancel(ctx)
	defer func() {
		g.Hub.Unregister(client)
		if g.Hub.Connected(gameID, player.ID) {
			return
		}
		if err := g.Engine.SetOnline(bg, player.ID, false); err != nil {
			logger.Error("Failed to mark player offline", zap.Uint("playerID", player.ID), zap.Error(err))
		}
	}()

	go g.writePump(client)

	g.sendInitialState(bg, client)
	if err := g.Engine.SetOnline(bg, player.ID, true); err != nil {
		logger.Error("Failed to mark player online", zap.Uint("playerID", player.ID), zap.Error(err))
	}

	g.readPump(client)
}

// sendInitialState はセッションIDと現在のスナップショットを本人にだけ送る
func (g *Gateway) sendInitialState(ctx context.Context, c *models.Client) {
	if g.Sessions != nil {
		sessionID, err := g.Sessions.Issue(ctx, SessionInfo{UserID: c.UserID, GameID: c.GameID, PlayerID: c.PlayerID})
		if err != nil {
			g.Logger.Error("Error storing session info in Redis", zap.Error(err))
		} else if msg, err := json.Marshal(sessionMessage{Type: "session", SessionID: sessionID, PlayerID: c.PlayerID}); err == nil {
			g.enqueue(c, msg)
		}
	}

	snapshot, err := g.Engine.Snapshot(ctx, c.GameID)
	if err != nil {
		g.Logger.Error("Failed to build room snapshot", zap.Uint("gameID", c.GameID), zap.Error(err))
		return
	}
	msg, err := broadcast.Encode(condor.Event{Name: condor.EventRoomUpdate, GameID: c.GameID, Payload: snapshot}, time.Now())
	if err != nil {
		g.Logger.Error("Failed to encode room snapshot", zap.Error(err))
		return
	}
	g.enqueue(c, msg)
}

func (g *Gateway) enqueue(c *models.Client, msg []byte) {
	defer func() {
		// Unregister済みでSendが閉じている
		_ = recover()
	}()
	select {
	case c.Send <- msg:
	default:
	}
}

// readPump はPongで読み取りデッドラインを延ばす。クライアントからの操作はHTTPで受けるので中身は読み捨てる
func (g *Gateway) readPump(c *models.Client) {
	c.Conn.SetReadLimit(4096)
	c.Conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(readDeadline))
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.Logger.Error("WebSocket error", zap.Error(err))
			}
			return
		}
	}
}

// writePump はこの接続への唯一の書き込み手。Sendが閉じられたら接続を閉じる
func (g *Gateway) writePump(c *models.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				g.Logger.Error("Failed to write message", zap.String("clientID", c.ID), zap.Error(err))
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				g.Logger.Error("Error sending ping", zap.String("clientID", c.ID), zap.Error(err))
				return
			}
		}
	}
}
