package screens

import (
	"net/http"
	"strings"

	"condorserver/condor"
	"condorserver/middlewares"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RoomRequest はルーム作成・参加のボディ。ニックネームがなければトークンのものを使う
type RoomRequest struct {
	Nickname string `json:"nickname"`
}

func nickname(c *gin.Context) (string, bool) {
	var request RoomRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			return "", false
		}
	}
	name := strings.TrimSpace(request.Nickname)
	if name == "" {
		name = middlewares.GetNickname(c)
	}
	return name, true
}

// CreateRoom は新しいルームを作り、作成者をホストにする
func CreateRoom(c *gin.Context, engine *condor.Engine, logger *zap.Logger) {
	userID, ok := middlewares.GetUserIDFromToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "token_validation_error", "error": "Unauthorized"})
		return
	}
	name, ok := nickname(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"status": "bad_request", "error": "Invalid request body"})
		return
	}

	game, host, err := engine.CreateRoom(c.Request.Context(), userID, name)
	if err != nil {
		logger.Error("Failed to create room", zap.Error(err))
		respondError(c, err, logger)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"status":   "success",
		"gameId":   game.ID,
		"roomName": game.RoomName,
		"playerId": host.ID,
	})
}

// JoinRoom はルーム番号で待機中のルームに参加する
func JoinRoom(c *gin.Context, engine *condor.Engine, logger *zap.Logger) {
	userID, ok := middlewares.GetUserIDFromToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "token_validation_error", "error": "Unauthorized"})
		return
	}
	name, ok := nickname(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"status": "bad_request", "error": "Invalid request body"})
		return
	}

	player, err := engine.JoinRoom(c.Request.Context(), c.Param("roomName"), userID, name)
	if err != nil {
		respondError(c, err, logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "success",
		"gameId":   player.GameID,
		"playerId": player.ID,
	})
}

// RoomInfo はルームの状態と、自分だけに見える役職を返す
func RoomInfo(c *gin.Context, engine *condor.Engine, logger *zap.Logger) {
	gameID, me, ok := requestPlayer(c, engine, logger)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	snapshot, err := engine.Snapshot(ctx, gameID)
	if err != nil {
		respondError(c, err, logger)
		return
	}
	round, err := engine.CurrentRound(ctx, gameID)
	if err != nil {
		respondError(c, err, logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"game":    snapshot.Game,
		"players": snapshot.Players,
		"round":   round,
		"me": gin.H{
			"playerId": me.ID,
			"role":     me.Role,
			"color":    me.Color,
			"isHost":   me.IsHost,
			"isReady":  me.IsReady,
		},
	})
}

// LeaveRoom はルームから退出する
func LeaveRoom(c *gin.Context, engine *condor.Engine, logger *zap.Logger) {
	_, me, ok := requestPlayer(c, engine, logger)
	if !ok {
		return
	}
	if err := engine.LeaveRoom(c.Request.Context(), me.ID); err != nil {
		respondError(c, err, logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
