package media

import (
	"mime"
	"net/url"
	"path"
	"strings"
)

// ContentTypeFromURL 匿名解析没有 content-type 时按扩展名推断
func ContentTypeFromURL(raw string) string {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return ""
	}
	ct := mime.TypeByExtension(ext)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return ct
}

// IsImageOrVideo 上传只允许图片和视频
func IsImageOrVideo(contentType string) bool {
	return strings.HasPrefix(contentType, "image/") || strings.HasPrefix(contentType, "video/")
}
