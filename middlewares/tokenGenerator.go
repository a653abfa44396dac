package middlewares

import (
	"time"

	"condorserver/models"

	"github.com/golang-jwt/jwt/v5"
)

// GenerateToken はユーザーIDとニックネームを内包したトークンを発行する。
// 本番では認証サービスが発行するので、開発用の発行とテストで使う
func GenerateToken(secret []byte, userID uint, nickname string, ttl time.Duration) (string, error) {
	now := time.Now()
	// JWTトークン生成時に内包するデータ
	claims := &models.MyClaims{
		UserID:   userID,
		Nickname: nickname,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
