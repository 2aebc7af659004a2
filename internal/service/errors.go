package service

import (
	"errors"
	"time"

	"Forum_Community/internal/pkg"

	"gorm.io/gorm"
)

// dbError 把存储层错误翻译成稳定的错误分类；已分类的错误原样返回
func dbError(err error, what string) error {
	if err == nil {
		return nil
	}
	var e *pkg.Error
	if errors.As(err, &e) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkg.NotFound("%s not found", what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return pkg.Conflict("%s already exists", what)
	}
	return pkg.Internal(what+" storage failure", err)
}

func requireActor(actor uint64) error {
	if actor == 0 {
		return pkg.Unauthorized("login required")
	}
	return nil
}

// 统一使用 UTC，保证不同驱动下时间可比较
func utcNow() time.Time {
	return time.Now().UTC()
}

// pageToOffset page/size 都未给出时返回 limit=0 表示不分页
func pageToOffset(page, size, defaultSize, maxSize int) (offset, limit int) {
	if page <= 0 && size <= 0 {
		return 0, 0
	}
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > maxSize {
		size = defaultSize
	}
	return (page - 1) * size, size
}
