package main

import (
	"context"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"

	"sky-htm/internal/htm"
	"sky-htm/internal/ingest"
	"sky-htm/internal/logger"
	"sky-htm/internal/migrate"
	"sky-htm/internal/store"
	"sky-htm/internal/utils"
)

// 文档注释：目录导入工具
// 背景：把 `ra|dec|name|mag|kind` 行格式的目录（本地文件或 URL，参数或 CATALOG_SRC）按批写入 PostgreSQL，
//
//	叶子 id 按 HTM_LEVEL 计算；同名对象覆盖。
func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()
	src := os.Getenv("CATALOG_SRC")
	if len(os.Args) > 1 {
		src = os.Args[1]
	}
	if src == "" {
		l.Error("catalog_src_missing")
		os.Exit(2)
	}
	level := utils.EnvInt("HTM_LEVEL", htm.DefaultDepth)
	idx, err := htm.NewIndex(level)
	if err != nil {
		l.Error("htm_level_error", "level", level, "err", err)
		os.Exit(2)
	}
	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := migrate.EnsureSchema(db); err != nil {
		l.Error("schema_error", "err", err)
		os.Exit(1)
	}
	st := store.AttachDB(db, level)
	ctx := context.Background()
	stats, err := ingest.FetchAndImport(ctx, src, idx, st)
	if err != nil {
		l.Error("ingest_error", "err", err, "imported", stats.Imported)
		os.Exit(1)
	}
	n, _ := st.CountObjects(ctx)
	l.Info("catalog_ingest_done",
		"imported", humanize.Comma(int64(stats.Imported)),
		"skipped", stats.Skipped,
		"read", humanize.Bytes(uint64(stats.Bytes)),
		"total", humanize.Comma(n))
}
