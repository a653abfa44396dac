package screens

import (
	"net/http"

	"condorserver/condor"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SelectionRequest は役職と色の選択。指定した方だけ更新する
type SelectionRequest struct {
	Role  *string `json:"role"`
	Color *string `json:"color"`
}

// StartSelection はホストが役職選択を始める
func StartSelection(c *gin.Context, engine *condor.Engine, logger *zap.Logger) {
	gameID, _, ok := requestHost(c, engine, logger)
	if !ok {
		return
	}
	if err := engine.StartSelection(c.Request.Context(), gameID); err != nil {
		respondError(c, err, logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// UpdateSelection は自分の役職か色を選ぶ
func UpdateSelection(c *gin.Context, engine *condor.Engine, logger *zap.Logger) {
	_, me, ok := requestPlayer(c, engine, logger)
	if !ok {
		return
	}
	var request SelectionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, logger, err)
		return
	}
	if request.Role == nil && request.Color == nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "bad_request", "error": "role or color is required"})
		return
	}

	ctx := c.Request.Context()
	if request.Role != nil {
		if err := engine.SelectRole(ctx, me.ID, *request.Role); err != nil {
			respondError(c, err, logger)
			return
		}
	}
	if request.Color != nil {
		if err := engine.SelectColor(ctx, me.ID, *request.Color); err != nil {
			respondError(c, err, logger)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// SetReady は選択を確定する
func SetReady(c *gin.Context, engine *condor.Engine, logger *zap.Logger) {
	_, me, ok := requestPlayer(c, engine, logger)
	if !ok {
		return
	}
	if err := engine.SetReady(c.Request.Context(), me.ID); err != nil {
		respondError(c, err, logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// UnlockSelection は確定を取り消して選び直せるようにする
func UnlockSelection(c *gin.Context, engine *condor.Engine, logger *zap.Logger) {
	_, me, ok := requestPlayer(c, engine, logger)
	if !ok {
		return
	}
	if err := engine.UnlockSelection(c.Request.Context(), me.ID); err != nil {
		respondError(c, err, logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// StartGame は全員の選択を確かめてゲームを開始する
func StartGame(c *gin.Context, engine *condor.Engine, logger *zap.Logger) {
	gameID, _, ok := requestHost(c, engine, logger)
	if !ok {
		return
	}
	round, err := engine.StartGame(c.Request.Context(), gameID)
	if err != nil {
		respondError(c, err, logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"round":  round.Round,
		"phase":  round.Phase,
		"endsAt": round.PhaseEndsAt,
	})
}
