package screens

import (
	"errors"
	"net/http"
	"strconv"

	"condorserver/condor"
	"condorserver/middlewares"
	"condorserver/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor はエラー種別をHTTPステータスに変換する
func statusFor(kind condor.Kind) int {
	switch kind {
	case condor.KindNotFound:
		return http.StatusNotFound
	case condor.KindWriteConflict, condor.KindRoundMismatch, condor.KindDuplicateVote,
		condor.KindConflictingSelection, condor.KindRoomFull:
		return http.StatusConflict
	case condor.KindInternal:
		return http.StatusInternalServerError
	}
	return http.StatusUnprocessableEntity
}

// respondError はエンジンのエラーをJSONで返す。型付きでないエラーは中身を隠す
func respondError(c *gin.Context, err error, logger *zap.Logger) {
	kind := condor.KindOf(err)
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(status, gin.H{"status": string(kind), "error": "Internal server error"})
		return
	}

	body := gin.H{"status": string(kind), "error": err.Error()}
	var e *condor.Error
	if errors.As(err, &e) {
		if e.Count > 0 {
			body["count"] = e.Count
		}
		if e.Selection != "" {
			body["selection"] = e.Selection
		}
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, logger *zap.Logger, err error) {
	logger.Warn("Request binding error", zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"status": "bad_request", "error": "Invalid request body"})
}

func paramUint(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"status": "bad_request", "error": "Invalid " + name})
		return 0, false
	}
	return uint(v), true
}

func paramInt(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil || v <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"status": "bad_request", "error": "Invalid " + name})
		return 0, false
	}
	return v, true
}

// requestPlayer はURLのゲームIDと認証済みユーザーから操作するプレイヤーを決める。
// 失敗したらレスポンスを書いてfalseを返す
func requestPlayer(c *gin.Context, engine *condor.Engine, logger *zap.Logger) (uint, *models.Player, bool) {
	gameID, ok := paramUint(c, "id")
	if !ok {
		return 0, nil, false
	}
	userID, ok := middlewares.GetUserIDFromToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "token_validation_error", "error": "Unauthorized"})
		return 0, nil, false
	}
	player, err := engine.PlayerForUser(c.Request.Context(), gameID, userID)
	if err != nil {
		if condor.IsKind(err, condor.KindNotFound) {
			c.JSON(http.StatusForbidden, gin.H{"status": "not_a_member", "error": "ルームに参加していません"})
			return 0, nil, false
		}
		respondError(c, err, logger)
		return 0, nil, false
	}
	return gameID, player, true
}

// requestHost はホストだけが行える操作のためのrequestPlayer
func requestHost(c *gin.Context, engine *condor.Engine, logger *zap.Logger) (uint, *models.Player, bool) {
	gameID, player, ok := requestPlayer(c, engine, logger)
	if !ok {
		return 0, nil, false
	}
	if !player.IsHost {
		c.JSON(http.StatusForbidden, gin.H{"status": "not_host", "error": "ホストのみ実行できます"})
		return 0, nil, false
	}
	return gameID, player, true
}
