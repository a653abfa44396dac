package connection

import (
	"context"
	"sync"

	"condorserver/condor/broadcast"
	"condorserver/models"

	"go.uber.org/zap"

	"github.com/go-redis/redis/v8"
)

// Hub はルームごとのWebSocketクライアントを管理し、Redisから届いたイベントを配る
type Hub struct {
	mu     sync.RWMutex
	rooms  map[uint]map[*models.Client]bool
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{rooms: make(map[uint]map[*models.Client]bool), logger: logger}
}

// Register はクライアントをルームに追加する
func (h *Hub) Register(c *models.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.rooms[c.GameID]
	if !ok {
		clients = make(map[*models.Client]bool)
		h.rooms[c.GameID] = clients
	}
	clients[c] = true
	h.logger.Info("New client added", zap.String("clientID", c.ID), zap.Uint("UserID", c.UserID), zap.Uint("GameID", c.GameID))
}

// Unregister はクライアントを外して送信チャンネルを閉じる。2回呼んでもよい
func (h *Hub) Unregister(c *models.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(c)
}

func (h *Hub) remove(c *models.Client) {
	clients, ok := h.rooms[c.GameID]
	if !ok || !clients[c] {
		return
	}
	delete(clients, c)
	close(c.Send)
	if len(clients) == 0 {
		delete(h.rooms, c.GameID)
	}
	h.logger.Info("Client removed", zap.String("clientID", c.ID), zap.Uint("UserID", c.UserID))
}

// Connected はプレイヤーがまだ別の接続を持っているかどうか
func (h *Hub) Connected(gameID, playerID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[gameID] {
		if c.PlayerID == playerID {
			return true
		}
	}
	return false
}

// Count はルームの接続数
func (h *Hub) Count(gameID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[gameID])
}

// Broadcast はルームの全クライアントにmessageを送る。詰まっているクライアントは切断する
func (h *Hub) Broadcast(gameID uint, message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.rooms[gameID] {
		select {
		case c.Send <- message:
		default:
			h.logger.Warn("Client send buffer full, dropping", zap.String("clientID", c.ID), zap.Uint("UserID", c.UserID))
			h.remove(c)
		}
	}
}

// Run はRedisの全ルームのチャンネルを購読し、ctxが終わるまで配り続ける
func (h *Hub) Run(ctx context.Context, rdb *redis.Client) error {
	sub := rdb.PSubscribe(ctx, broadcast.ChannelPattern)
	defer sub.Close()

	// 購読が確立するまで待つ
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	h.logger.Info("Subscribed to room channels", zap.String("pattern", broadcast.ChannelPattern))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			gameID, err := broadcast.ParseChannel(msg.Channel)
			if err != nil {
				h.logger.Error("Failed to parse channel", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			h.Broadcast(gameID, []byte(msg.Payload))
		}
	}
}
