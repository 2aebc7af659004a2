package handler

import (
	"io"
	"net/http"

	"Forum_Community/internal/pkg"
	"Forum_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type MediaHandler struct {
	svc *service.MediaService
}

type ResolveReq struct {
	Keys    []string `json:"keys" binding:"required"`
	Refresh bool     `json:"refresh"`
}

func NewMediaHandler(svc *service.MediaService) *MediaHandler {
	return &MediaHandler{svc: svc}
}

// Upload multipart 表单字段 file
func (h *MediaHandler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, pkg.InvalidInput("file required"))
		return
	}
	if fh.Size > service.MaxUploadBytes {
		fail(c, pkg.InvalidInput("file exceeds %d bytes", service.MaxUploadBytes))
		return
	}

	f, err := fh.Open()
	if err != nil {
		fail(c, pkg.InvalidInput("unreadable file"))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, service.MaxUploadBytes+1))
	if err != nil {
		fail(c, pkg.InvalidInput("unreadable file"))
		return
	}

	res, err := h.svc.Upload(c.Request.Context(), userIDFromCtx(c), fh.Filename, fh.Header.Get("Content-Type"), data)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *MediaHandler) Presign(c *gin.Context) {
	res, err := h.svc.Presign(c.Request.Context(), userIDFromCtx(c), c.Query("key"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Resolve 登录与匿名均可调用
func (h *MediaHandler) Resolve(c *gin.Context) {
	var req ResolveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidParams(c)
		return
	}

	out, err := h.svc.Resolve(c.Request.Context(), userIDFromCtx(c), req.Keys, nil, req.Refresh)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

// Serve 公开地址 /media/*key，直接回源读取对象
func (h *MediaHandler) Serve(c *gin.Context) {
	obj, err := h.svc.Open(c.Request.Context(), c.Param("key"))
	if err != nil {
		fail(c, err)
		return
	}
	defer obj.Close()

	c.DataFromReader(http.StatusOK, obj.Size, obj.ContentType, obj, nil)
}
