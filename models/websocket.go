package models

import (
	"github.com/gorilla/websocket"
)

// Websocketクライアントを定義
type Client struct {
	ID       string // 接続ごとのUUID
	Conn     *websocket.Conn
	UserID   uint // JWTから抽出したユーザーID
	GameID   uint
	PlayerID uint
	Send     chan []byte // 書き込みはwritePumpだけが行う
}
