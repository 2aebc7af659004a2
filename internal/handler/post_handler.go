package handler

import (
	"net/http"
	"time"

	"Forum_Community/internal/pkg"
	"Forum_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	svc *service.PostService
}

type CreatePostReq struct {
	Title     string   `json:"title" binding:"required"`
	Body      string   `json:"body"`
	MediaKeys []string `json:"media_keys"`
}

func NewPostHandler(svc *service.PostService) *PostHandler {
	return &PostHandler{svc: svc}
}

// CreatePost 创建帖子接口
func (h *PostHandler) CreatePost(c *gin.Context) {
	communityID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req CreatePostReq
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidParams(c)
		return
	}

	post, err := h.svc.CreatePost(c.Request.Context(), userIDFromCtx(c), communityID, req.Title, req.Body, req.MediaKeys)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, post)
}

func (h *PostHandler) Get(c *gin.Context) {
	post, err := h.svc.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// ListByCommunity 获取帖子列表接口（优先游标分页，兼容页码）
func (h *PostHandler) ListByCommunity(c *gin.Context) {
	communityID, ok := pathID(c, "id")
	if !ok {
		return
	}
	size, ok := queryInt(c, "size")
	if !ok {
		return
	}

	// 游标参数（可选）
	lastID := c.Query("last_id")
	lastTS := c.Query("last_created_at")

	// 如果提供了游标，则走游标分页；两个参数必须同时给出
	if lastID != "" || lastTS != "" {
		if lastID == "" || lastTS == "" {
			fail(c, pkg.InvalidInput("cursor requires both last_id and last_created_at"))
			return
		}
		ts, err := time.Parse(time.RFC3339Nano, lastTS)
		if err != nil {
			fail(c, pkg.InvalidInput("invalid last_created_at"))
			return
		}
		cur := service.Cursor{LastID: lastID, LastCreatedAt: ts.UTC()}

		list, next, err := h.svc.ListByCommunityCursor(c.Request.Context(), communityID, cur, size)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"list": list, "next": next})
		return
	}

	// 兼容页码查询（不推荐深页使用）
	page, ok := queryInt(c, "page")
	if !ok {
		return
	}

	list, err := h.svc.ListByCommunity(c.Request.Context(), communityID, page, size)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"list": list,
		"page": page,
		"size": size,
	})
}
