package handler

import (
	"net/http"

	"Forum_Community/internal/pkg"
	"Forum_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	svc *service.CommentService
}

type CreateCommentReq struct {
	Body            string  `json:"body" binding:"required"`
	ParentCommentID *string `json:"parent_comment_id"`
}

func NewCommentHandler(svc *service.CommentService) *CommentHandler {
	return &CommentHandler{svc: svc}
}

func (h *CommentHandler) Create(c *gin.Context) {
	var req CreateCommentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidParams(c)
		return
	}

	comment, err := h.svc.CreateComment(c.Request.Context(), userIDFromCtx(c), c.Param("id"), req.Body, req.ParentCommentID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, comment)
}

// List format=tree（默认）返回嵌套结构，format=flat 返回带深度的前序列表
func (h *CommentHandler) List(c *gin.Context) {
	postID := c.Param("id")
	ctx := c.Request.Context()

	switch c.DefaultQuery("format", "tree") {
	case "tree":
		tree, err := h.svc.ListTree(ctx, postID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"format": "tree", "list": tree})
	case "flat":
		rows, err := h.svc.ListThreaded(ctx, postID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"format": "flat", "list": rows})
	default:
		fail(c, pkg.InvalidInput("format must be tree or flat"))
	}
}
