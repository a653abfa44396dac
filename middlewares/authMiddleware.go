package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// トークン検証を行うミドルウェア。成功したらユーザーIDをコンテキストにセットする
func AuthMiddleware(secret []byte, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := ParseToken(TokenFromRequest(c.Request), secret)
		if err != nil {
			logger.Warn("認証失敗", zap.String("path", c.Request.URL.Path), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status": "token_validation_error",
				"error":  "Unauthorized",
			})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextNickname, claims.Nickname)
		c.Next()
	}
}
