package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"sky-htm/internal/catalog"
	"sky-htm/internal/htm"
	"sky-htm/internal/logger"
	"sky-htm/internal/store"
	"sky-htm/internal/utils"
)

// 文档注释：从数据库生成按根三角形分片的对象文件
// 背景：离线生成 face-<id>.bin，服务端配置相同 FACECACHE_DIR 与 HTM_LEVEL 即可按需加载。
func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()
	dir := utils.EnvString("FACECACHE_DIR", "data/facecache")
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}
	level := utils.EnvInt("HTM_LEVEL", htm.DefaultDepth)
	if _, err := htm.NewIndex(level); err != nil {
		l.Error("htm_level_error", "level", level, "err", err)
		os.Exit(2)
	}
	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	st := store.AttachDB(db, level)
	objs, err := st.AllObjects(context.Background())
	if err != nil {
		l.Error("db_read_error", "err", err)
		os.Exit(1)
	}
	if err := catalog.BuildFaceFiles(dir, level, objs); err != nil {
		l.Error("facecache_build_error", "err", err)
		os.Exit(1)
	}
	l.Info("facecache_build_ok", "dir", dir, "objects", len(objs))
}
