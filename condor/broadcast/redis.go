package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"condorserver/condor"

	"go.uber.org/zap"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ChannelPattern は全ルームのチャンネルにマッチするパターン
const ChannelPattern = "room:*"

// Envelope はRedisに流すメッセージ。WebSocketのクライアントにもこの形のまま届く
type Envelope struct {
	ID          string           `json:"id"`
	Event       condor.EventName `json:"event"`
	GameID      uint             `json:"gameId"`
	Data        json.RawMessage  `json:"data"`
	PublishedAt time.Time        `json:"publishedAt"`
}

// Channel はルームごとのチャンネル名
func Channel(gameID uint) string {
	return fmt.Sprintf("room:%d", gameID)
}

// ParseChannel はチャンネル名からゲームIDを取り出す
func ParseChannel(channel string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimPrefix(channel, "room:"), 10, 64)
	if err != nil || !strings.HasPrefix(channel, "room:") {
		return 0, fmt.Errorf("invalid room channel %q", channel)
	}
	return uint(id), nil
}

// RedisPublisher はエンジンのイベントをRedisのPub/Subに流す
type RedisPublisher struct {
	rdb    *redis.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewRedisPublisher はrdbに配信するPublisherを作る
func NewRedisPublisher(rdb *redis.Client, logger *zap.Logger) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, logger: logger, now: time.Now}
}

var _ condor.Publisher = (*RedisPublisher)(nil)

// Publish はイベントを封筒に包んでルームのチャンネルに送る
func (p *RedisPublisher) Publish(ctx context.Context, ev condor.Event) error {
	message, err := Encode(ev, p.now())
	if err != nil {
		return err
	}
	receivers, err := p.rdb.Publish(ctx, Channel(ev.GameID), message).Result()
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Name, err)
	}
	p.logger.Debug("Event published",
		zap.String("event", string(ev.Name)),
		zap.Uint("gameID", ev.GameID),
		zap.Int64("receivers", receivers),
	)
	return nil
}

// Encode はイベントをJSONの封筒にする
func Encode(ev condor.Event, at time.Time) ([]byte, error) {
	data, err := json.Marshal(ev.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", ev.Name, err)
	}
	message, err := json.Marshal(Envelope{
		ID:          uuid.New().String(),
		Event:       ev.Name,
		GameID:      ev.GameID,
		Data:        data,
		PublishedAt: at.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", ev.Name, err)
	}
	return message, nil
}

// Decode は封筒を読み戻す
func Decode(message []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &env, nil
}
