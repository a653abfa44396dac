package screens

import (
	"net/http"
	"strconv"

	"condorserver/condor"
	"condorserver/condor/connection"
	"condorserver/middlewares"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RegisterRoutes は各HTTPリクエストのルーティングを登録する。gatewayがnilならWebSocketは登録しない
func RegisterRoutes(router gin.IRouter, engine *condor.Engine, gateway *connection.Gateway, secret []byte, logger *zap.Logger) {
	authed := router.Group("/", middlewares.AuthMiddleware(secret, logger))

	handle := func(h func(*gin.Context, *condor.Engine, *zap.Logger)) gin.HandlerFunc {
		return func(c *gin.Context) {
			h(c, engine, logger)
		}
	}

	authed.POST("/rooms", handle(CreateRoom))
	authed.POST("/rooms/:roomName/join", handle(JoinRoom))

	games := authed.Group("/games/:id")
	games.GET("", handle(RoomInfo))
	games.POST("/leave", handle(LeaveRoom))

	games.POST("/selection/start", handle(StartSelection))
	games.PUT("/selection", handle(UpdateSelection))
	games.POST("/ready", handle(SetReady))
	games.DELETE("/ready", handle(UnlockSelection))
	games.POST("/start", handle(StartGame))

	games.POST("/rounds/:round/advance", handle(AdvancePhase))
	games.GET("/rounds/:round/votes", handle(VotingStatus))
	games.POST("/rounds/:round/votes", handle(SubmitVote))
	games.POST("/rounds/:round/complete", handle(CompleteVoting))

	games.GET("/actions", handle(MyActions))
	games.POST("/actions", handle(SubmitAction))

	games.GET("/identifications", handle(IdentificationStatus))
	games.POST("/identifications", handle(SubmitIdentification))
	games.POST("/identifications/complete", handle(CompleteIdentification))

	if gateway != nil {
		authed.GET("/ws", func(c *gin.Context) {
			userID, _ := middlewares.GetUserIDFromToken(c)
			gameID, err := strconv.ParseUint(c.Query("gameId"), 10, 64)
			if err != nil || gameID == 0 {
				c.JSON(http.StatusBadRequest, gin.H{"status": "bad_request", "error": "Invalid gameId"})
				return
			}
			gateway.HandleConnections(c.Request.Context(), c.Writer, c.Request, userID, uint(gameID))
		})
	}
}
