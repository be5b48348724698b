package utils

import (
	"os"
	"strconv"
	"time"
)

// EnvString：读取环境变量，未设置或为空时返回 def
func EnvString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// EnvInt：读取整数环境变量，解析失败时回退 def
func EnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// EnvBool：读取布尔环境变量（true/false/1/0），解析失败时回退 def
func EnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// EnvSeconds：以秒为单位的时长
func EnvSeconds(key string, def time.Duration) time.Duration {
	if n := EnvInt(key, -1); n >= 0 {
		return time.Duration(n) * time.Second
	}
	return def
}
