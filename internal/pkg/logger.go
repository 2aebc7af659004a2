package pkg

import (
	"os"

	"github.com/charmbracelet/log"
)

// InitLogger 设置全局日志级别与输出格式
func InitLogger(level string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		Prefix:          "forum",
	})
	log.SetDefault(logger)
	if err != nil && level != "" {
		log.Warn("unknown log level, falling back to info", "level", level)
	}
}
