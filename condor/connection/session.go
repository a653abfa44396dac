package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const sessionTTL = 24 * time.Hour // 24時間の有効期限

// ErrSessionNotFound はセッションIDが無効または期限切れ
var ErrSessionNotFound = errors.New("session not found")

// SessionInfo は再接続のためにRedisに保存する接続情報
type SessionInfo struct {
	UserID   uint `json:"userID"`
	GameID   uint `json:"gameID"`
	PlayerID uint `json:"playerID"`
}

// SessionStore は再接続用のセッションIDをRedisで管理する
type SessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb, ttl: sessionTTL}
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}

// Issue は新しいセッションIDを発行して保存する
func (s *SessionStore) Issue(ctx context.Context, info SessionInfo) (string, error) {
	sessionID := uuid.New().String()
	sessionInfoJSON, err := json.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("encode session info: %w", err)
	}
	if err := s.rdb.Set(ctx, sessionKey(sessionID), sessionInfoJSON, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session info: %w", err)
	}
	return sessionID, nil
}

// Restore はセッション情報を取り出し、古いセッションIDを削除する
func (s *SessionStore) Restore(ctx context.Context, sessionID string) (*SessionInfo, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}
	sessionInfoJSON, err := s.rdb.GetDel(ctx, sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session info: %w", err)
	}
	var info SessionInfo
	if err := json.Unmarshal([]byte(sessionInfoJSON), &info); err != nil {
		return nil, fmt.Errorf("decode session info: %w", err)
	}
	return &info, nil
}
