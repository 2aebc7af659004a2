package handler

import (
	"strconv"

	"Forum_Community/internal/middleware"
	"Forum_Community/internal/pkg"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

// fail 统一错误响应：{"kind": ..., "msg": ...}
func fail(c *gin.Context, err error) {
	kind := pkg.KindOf(err)
	if kind == pkg.KindInternal {
		log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "err", err)
	}
	c.AbortWithStatusJSON(pkg.HTTPStatus(kind), gin.H{"kind": kind, "msg": pkg.Message(err)})
}

func invalidParams(c *gin.Context) {
	fail(c, pkg.InvalidInput("invalid params"))
}

func userIDFromCtx(c *gin.Context) uint64 {
	if v, ok := c.Get(middleware.ContextUserIDKey); ok {
		if id, ok2 := v.(uint64); ok2 {
			return id
		}
	}
	return 0
}

// pathID 解析路径中的数字 id
func pathID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		fail(c, pkg.InvalidInput("invalid %s", name))
		return 0, false
	}
	return id, true
}

// queryInt 缺省返回 0，非法值返回 false
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		fail(c, pkg.InvalidInput("invalid %s", name))
		return 0, false
	}
	return v, true
}
