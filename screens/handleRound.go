package screens

import (
	"net/http"

	"condorserver/condor"
	"condorserver/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdvanceRequest はクライアントが見ている現在のフェーズ
type AdvanceRequest struct {
	Phase models.Phase `json:"phase" binding:"required"`
}

// VoteRequest は投票する獣首
type VoteRequest struct {
	ArtifactID uint `json:"artifactId" binding:"required"`
}

// AdvancePhase はホストがaction→discussion→votingと進める
func AdvancePhase(c *gin.Context, engine *condor.Engine, logger *zap.Logger) {
	gameID, _, ok := requestHost(c, engine, logger)
	if !ok {
		return
	}
	roundNo, ok := paramInt(c, "round")
	if !ok {
		return
	}
	var request AdvanceRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, logger, err)
		return
	}

	round, err := engine.AdvancePhase(c.Request.Context(), gameID, roundNo, request.Phase)
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

// SubmitVote は獣首に投票する。最後の1票なら集計結果も返す
func SubmitVote(c *gin.Context, engine *condor.Engine, logger *zap.Logger) {
	gameID, me, ok := requestPlayer(c, engine, logger)
	if !ok {
		return
	}
	roundNo, ok := paramInt(c, "round")
	if !ok {
		return
	}
	var request VoteRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, logger, err)
		return
	}

	receipt, err := engine.SubmitVote(c.Request.Context(), gameID, roundNo, me.ID, request.ArtifactID)
	if err != nil {
		respondError(c, err, logger)
		return
	}
	body := gin.H{"status": "success", "voting": receipt.Status}
	if receipt.Outcome != nil {
		body["outcome"] = outcomeJSON(receipt.Outcome)
	}
	c.JSON(http.StatusOK, body)
}

// VotingStatus は投票済みの人数
func VotingStatus(c *gin.Context, engine *condor.Engine, logger *zap.Logger) {
	gameID, _, ok := requestPlayer(c, engine, logger)
	if !ok {
		return
	}
	roundNo, ok := paramInt(c, "round")
	if !ok {
		return
	}
	status, err := engine.VotingStatus(c.Request.Context(), gameID, roundNo)
	if err != nil {
		respondError(c, err, logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "voting": status})
}

// CompleteVoting はホストが投票を締め切る
func CompleteVoting(c *gin.Context, engine *condor.Engine, logger *zap.Logger) {
	gameID, _, ok := requestHost(c, engine, logger)
	if !ok {
		return
	}
	roundNo, ok := paramInt(c, "round")
	if !ok {
		return
	}
	outcome, err := engine.CompleteVotingPhase(c.Request.Context(), gameID, roundNo)
	if err != nil {
		respondError(c, err, logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "outcome": outcomeJSON(outcome)})
}

func outcomeJSON(o *condor.VotingOutcome) gin.H {
	body := gin.H{
		"round":          o.Round,
		"roundCompleted": o.RoundCompleted,
		"isGameFinished": o.IsGameFinished,
		"results":        o.Results,
		"score":          o.Score,
	}
	if o.NextRound != nil {
		body["nextRound"] = gin.H{
			"round":  o.NextRound.Round,
			"phase":  o.NextRound.Phase,
			"endsAt": o.NextRound.PhaseEndsAt,
		}
	}
	return body
}
