package middlewares

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"condorserver/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// コンテキストに保存するキー
const (
	ContextUserID   = "UserID"
	ContextNickname = "Nickname"
)

var ErrTokenRequired = errors.New("token is required")

// TokenFromRequest はAuthorizationヘッダーからトークンを取り出す。
// ブラウザのWebSocketはヘッダーを付けられないので、tokenクエリも見る
func TokenFromRequest(r *http.Request) string {
	tokenString := r.Header.Get("Authorization")
	// Bearerトークンのプレフィックスを確認し、存在する場合は削除
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	if tokenString == "" {
		tokenString = r.URL.Query().Get("token")
	}
	return tokenString
}

// ParseToken はHS256で署名されたトークンを検証してクレームを返す
func ParseToken(tokenString string, secret []byte) (*models.MyClaims, error) {
	if tokenString == "" {
		return nil, ErrTokenRequired
	}
	claims := &models.MyClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// GetUserIDFromToken はAuthMiddlewareがセットしたユーザーIDを返す
func GetUserIDFromToken(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	userID, ok := v.(uint)
	return userID, ok && userID != 0
}

// GetNickname はトークンに含まれていたニックネーム
func GetNickname(c *gin.Context) string {
	return c.GetString(ContextNickname)
}
