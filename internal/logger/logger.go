// 包 logger：进程级日志器，级别与格式由 LOG_LEVEL / LOG_FORMAT 控制
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// current 当前日志器；并发读取无需加锁，Setup / Use 原子替换
var current atomic.Pointer[slog.Logger]

// 文档注释：按环境变量构造日志器
// 约束：未知级别按 info 处理；LOG_FORMAT=json 输出 JSON，其余为文本。
func fromEnv(w io.Writer) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Setup 重新读取环境变量并替换默认日志器，输出到标准错误
func Setup() *slog.Logger {
	l := fromEnv(os.Stderr)
	current.Store(l)
	return l
}

// Use 替换默认日志器，nil 忽略
func Use(l *slog.Logger) {
	if l != nil {
		current.Store(l)
	}
}

// 文档注释：获取默认日志器
// 约束：未调用 Setup 时首个调用方按环境变量初始化；并发首次调用只保留一个实例。
func L() *slog.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	l := fromEnv(os.Stderr)
	if current.CompareAndSwap(nil, l) {
		return l
	}
	return current.Load()
}
