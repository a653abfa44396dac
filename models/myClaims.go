package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// MyClaims はJWTクレームの構造体定義です。トークンの発行は認証サービス側で行う
type MyClaims struct {
	UserID   uint   `json:"userid"`
	Nickname string `json:"nickname,omitempty"`
	jwt.RegisteredClaims
}
