package middleware

import (
	"context"
	"errors"
	"strings"

	"Forum_Community/internal/pkg"
	"Forum_Community/internal/repository/redis"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

const ContextUserIDKey = "user_id"

// SessionStore 登录态存储
type SessionStore interface {
	GetUserToken(ctx context.Context, usrID uint64) (string, error)
	ExtendUserToken(ctx context.Context, usrID uint64) error
}

func abort(c *gin.Context, kind pkg.Kind, msg string) {
	c.AbortWithStatusJSON(pkg.HTTPStatus(kind), gin.H{"kind": kind, "msg": msg})
}

// authenticate 返回 0 表示没有携带令牌
func authenticate(c *gin.Context, issuer *pkg.TokenIssuer, sessions SessionStore) (uint64, *pkg.Error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return 0, nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return 0, pkg.Unauthorized("invalid authorization format")
	}

	tokenStr := parts[1]
	claims, err := issuer.ParseAccess(tokenStr)
	if err != nil {
		return 0, pkg.Unauthorized("invalid or expired token")
	}

	// redis校验是否是正确的token
	ctx := c.Request.Context()
	origin, err := sessions.GetUserToken(ctx, claims.UserID)
	if errors.Is(err, redis.ErrTokenNotFound) {
		return 0, pkg.Unauthorized("session expired")
	}
	if err != nil {
		return 0, pkg.Internal("session store", err)
	}
	if origin != tokenStr {
		return 0, pkg.Unauthorized("account has been logged in elsewhere")
	}

	// 校验通过后更新过期时间
	if err := sessions.ExtendUserToken(ctx, claims.UserID); err != nil {
		log.Warn("extend session failed", "user_id", claims.UserID, "err", err)
	}
	return claims.UserID, nil
}

func AuthMiddleware(issuer *pkg.TokenIssuer, sessions SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, perr := authenticate(c, issuer, sessions)
		if perr != nil {
			abort(c, perr.Kind, perr.Msg)
			return
		}
		if userID == 0 {
			abort(c, pkg.KindUnauthorized, "missing authorization header")
			return
		}

		// 注入 user_id
		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

// OptionalAuth 没有令牌时按匿名继续；携带了无效令牌仍然拒绝
func OptionalAuth(issuer *pkg.TokenIssuer, sessions SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, perr := authenticate(c, issuer, sessions)
		if perr != nil {
			abort(c, perr.Kind, perr.Msg)
			return
		}
		if userID != 0 {
			c.Set(ContextUserIDKey, userID)
		}
		c.Next()
	}
}
