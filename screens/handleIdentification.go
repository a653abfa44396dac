package screens

import (
	"net/http"

	"condorserver/condor"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IdentificationRequest は対象役職→被疑者のプレイヤーID
type IdentificationRequest struct {
	Accusations map[string]uint `json:"accusations" binding:"required"`
}

// SubmitIdentification は鑑人投票を行う
func SubmitIdentification(c *gin.Context, engine *condor.Engine, logger *zap.Logger) {
	gameID, me, ok := requestPlayer(c, engine, logger)
	if !ok {
		return
	}
	var request IdentificationRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, logger, err)
		return
	}

	status, err := engine.SubmitIdentification(c.Request.Context(), gameID, me.ID, request.Accusations)
	if err != nil {
		respondError(c, err, logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "identification": status})
}

// IdentificationStatus は鑑人投票の進み具合
func IdentificationStatus(c *gin.Context, engine *condor.Engine, logger *zap.Logger) {
	gameID, _, ok := requestPlayer(c, engine, logger)
	if !ok {
		return
	}
	status, err := engine.IdentificationStatus(c.Request.Context(), gameID)
	if err != nil {
		respondError(c, err, logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "identification": status})
}

// CompleteIdentification はホストが鑑人投票を締め切り、勝敗を決める
func CompleteIdentification(c *gin.Context, engine *condor.Engine, logger *zap.Logger) {
	gameID, _, ok := requestHost(c, engine, logger)
	if !ok {
		return
	}
	result, err := engine.CompleteIdentification(c.Request.Context(), gameID)
	if err != nil {
		respondError(c, err, logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "result": result})
}
