package middleware

import (
	"context"
	"fmt"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// JWKSKeyfunc 从 JWKS 地址获取公钥验签，返回的 cleanup 结束后台刷新
func JWKSKeyfunc(jwksURL string) (jwt.Keyfunc, func(), error) {
	// keyfunc/v3 用 context 结束后台 refresh goroutine
	ctx, cancel := context.WithCancel(context.Background())

	k, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("load jwks: %w", err)
	}
	return k.Keyfunc, cancel, nil
}
