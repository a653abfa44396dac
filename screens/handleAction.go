package screens

import (
	"net/http"

	"condorserver/condor"
	"condorserver/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ActionRequest はスキル使用のボディ。kindごとに必要な対象だけ読む
type ActionRequest struct {
	Kind             models.ActionKind `json:"kind" binding:"required"`
	ArtifactID       uint              `json:"artifactId"`
	SecondArtifactID uint              `json:"secondArtifactId"`
	PlayerID         uint              `json:"playerId"`
}

// toAction はボディをエンジンのスキル入力に変換する
func (r ActionRequest) toAction() (condor.ActionRequest, bool) {
	switch r.Kind {
	case models.ActionInspectArtifact:
		return condor.InspectArtifact{ArtifactID: r.ArtifactID}, true
	case models.ActionInspectPerson:
		return condor.InspectPerson{PlayerID: r.PlayerID}, true
	case models.ActionBlock:
		return condor.Block{ArtifactID: r.ArtifactID}, true
	case models.ActionAttack:
		return condor.Attack{PlayerID: r.PlayerID}, true
	case models.ActionSwap:
		return condor.Swap{FirstArtifactID: r.ArtifactID, SecondArtifactID: r.SecondArtifactID}, true
	}
	return nil, false
}

// SubmitAction はスキルを使う。鑑定結果は本人にだけ返し、配信はしない
func SubmitAction(c *gin.Context, engine *condor.Engine, logger *zap.Logger) {
	gameID, me, ok := requestPlayer(c, engine, logger)
	if !ok {
		return
	}
	var request ActionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, logger, err)
		return
	}
	action, ok := request.toAction()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"status": "bad_request", "error": "Unknown action kind"})
		return
	}

	result, err := engine.SubmitAction(c.Request.Context(), gameID, me.ID, action)
	if err != nil {
		respondError(c, err, logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "result": result})
}

// MyActions は自分のスキル履歴
func MyActions(c *gin.Context, engine *condor.Engine, logger *zap.Logger) {
	gameID, me, ok := requestPlayer(c, engine, logger)
	if !ok {
		return
	}
	actions, err := engine.ListMyActions(c.Request.Context(), gameID, me.ID)
	if err != nil {
		respondError(c, err, logger)
		return
	}

	history := make([]gin.H, 0, len(actions))
	for _, a := range actions {
		history = append(history, gin.H{
			"seq":              a.Seq,
			"round":            a.Round,
			"kind":             a.Kind,
			"targetPlayerId":   a.TargetPlayerID,
			"targetArtifactId": a.TargetArtifactID,
			"secondArtifactId": a.SecondArtifactID,
			"blocked":          a.Blocked,
		})
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "actions": history})
}
