// Package logging 提供基于 zerolog 的进程级日志，各组件通过 Named 取得带 component 字段的子 logger。
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Options 日志配置
type Options struct {
	Level  string
	Format string // console / json
	Writer io.Writer
}

// FromEnv 从 LOG_LEVEL / LOG_FORMAT 读取配置
func FromEnv() Options {
	return Options{
		Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Format: strings.ToLower(getEnv("LOG_FORMAT", "console")),
	}
}

var (
	mu   sync.Mutex
	root atomic.Pointer[zerolog.Logger]
)

// Init 构建根 logger；重复调用会替换之前的配置
func Init(opt Options) *zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()

	zerolog.TimeFieldFormat = time.RFC3339Nano

	var w io.Writer = os.Stdout
	if opt.Writer != nil {
		w = opt.Writer
	}
	if opt.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: opt.Writer != nil}
	}

	l := zerolog.New(w).Level(parseLevel(opt.Level)).With().Timestamp().Str("service", "trendradar").Logger()
	root.Store(&l)
	return &l
}

// Get 返回根 logger，未初始化时按环境变量初始化
func Get() *zerolog.Logger {
	if l := root.Load(); l != nil {
		return l
	}
	return Init(FromEnv())
}

// Named 返回带 component 字段的子 logger
func Named(component string) zerolog.Logger {
	return Get().With().Str("component", component).Logger()
}

// Nop 测试里使用的静默 logger
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

func parseLevel(s string) zerolog.Level {
	switch strings.TrimSpace(s) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
