// 包 ingest：调度每周的目录刷新任务，运行在服务进程内的后台协程
package ingest

import (
	"context"
	"os"
	"strconv"
	"time"

	"sky-htm/internal/logger"
)

// nextMondayAt：计算 now 之后下一次周一指定小时的时间点
// 约束：基于 now 所在时区与整点 hour；仅前推至未来时间
func nextMondayAt(now time.Time, hour int) time.Time {
	for i := 0; i <= 7; i++ {
		d := now.AddDate(0, 0, i)
		if d.Weekday() == time.Monday {
			t := time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, now.Location())
			if t.After(now) {
				return t
			}
		}
	}
	d := now.AddDate(0, 0, 7)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, now.Location())
}

// StartWeekly：每周一 INGEST_HOUR 点（INGEST_TZ 时区，默认 UTC 3:00）执行 job
// 背景：目录源按周更新；错误由日志记录，任务继续调度；ctx 取消后退出
func StartWeekly(ctx context.Context, job func(context.Context) error) {
	l := logger.L()
	loc := time.UTC
	if tz := os.Getenv("INGEST_TZ"); tz != "" {
		if x, err := time.LoadLocation(tz); err == nil {
			loc = x
		} else {
			l.Warn("ingest_tz_invalid", "tz", tz, "err", err)
		}
	}
	hour := 3
	if h := os.Getenv("INGEST_HOUR"); h != "" {
		if n, err := strconv.Atoi(h); err == nil && n >= 0 && n < 24 {
			hour = n
		}
	}
	next := nextMondayAt(time.Now().In(loc), hour)
	l.Debug("ingest_scheduled", "next", next)
	go func() {
		for {
			t := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
			l.Info("ingest_weekly_start", "at", next)
			if err := job(ctx); err != nil {
				l.Error("ingest_error", "err", err)
			} else {
				l.Info("ingest_weekly_done")
			}
			next = next.AddDate(0, 0, 7)
		}
	}()
}
