// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"sky-htm/internal/api"
	"sky-htm/internal/catalog"
	"sky-htm/internal/htm"
	"sky-htm/internal/ingest"
	"sky-htm/internal/logger"
	"sky-htm/internal/metrics"
	"sky-htm/internal/middleware"
	"sky-htm/internal/migrate"
	"sky-htm/internal/store"
	"sky-htm/internal/utils"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	l := logger.Setup()
	l.Debug("log_init_ok")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apiBase := utils.EnvString("API_BASE", "/api")
	level := utils.EnvInt("HTM_LEVEL", htm.DefaultDepth)
	var opts []htm.Option
	if utils.EnvBool("HTM_COARSEN", false) {
		opts = append(opts, htm.WithCoarsening())
	}
	idx, err := htm.NewIndex(level, opts...)
	if err != nil {
		l.Error("htm_level_error", "level", level, "err", err)
		os.Exit(1)
	}
	l.Info("htm_index_ready", "level", level, "leaves", idx.LeafCount())

	mem := catalog.New(idx)
	var dyn catalog.Dynamic
	dyn.Set(mem)
	var names api.ObjectFinder = mem
	var stats api.StatsStore
	var st *store.Store

	if utils.EnvBool("PG_ENABLED", true) {
		db, err := utils.OpenPostgresFromEnv()
		if err != nil {
			l.Error("db_open_error", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			l.Error("db_ping_error", "err", err)
			os.Exit(1)
		}
		l.Info("db_ping_ok")
		if err := migrate.EnsureSchema(db); err != nil {
			l.Error("schema_error", "err", err)
			os.Exit(1)
		}
		st = store.AttachDB(db, level)
		names, stats = st, st
		go prepareDB(ctx, st, idx, mem, &dyn)
	} else if src := os.Getenv("CATALOG_SRC"); src != "" {
		go func() {
			if _, err := ingest.FetchAndImport(ctx, src, idx, mem); err != nil {
				l.Error("catalog_load_error", "err", err)
			}
		}()
	}

	rc := utils.OpenRedisFromEnv()
	if rc == nil {
		l.Info("redis_disabled")
	} else if err := rc.Ping(ctx).Err(); err != nil {
		l.Error("redis_ping_error", "err", err)
		rc = nil
	} else {
		l.Info("redis_ping_ok")
	}

	apiMux := api.BuildRoutes(api.Options{
		Index:      idx,
		Source:     &dyn,
		Names:      names,
		Nearest:    mem,
		Stats:      stats,
		Redis:      rc,
		LRUSize:    utils.EnvInt("LRU_SIZE", 4096),
		CacheTTL:   utils.EnvSeconds("CACHE_TTL_S", 0),
		MaxObjects: utils.EnvInt("MAX_OBJECTS", 10000),
	})
	mux := http.NewServeMux()
	mux.Handle(apiBase+"/", http.StripPrefix(apiBase, apiMux))
	mux.Handle(apiBase+"/metrics", metrics.Handler())
	mux.HandleFunc(apiBase+"/reload", func(w http.ResponseWriter, r *http.Request) {
		t := r.Header.Get("x-admin-token")
		if t == "" || t != os.Getenv("ADMIN_TOKEN") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if st == nil {
			w.WriteHeader(http.StatusConflict)
			return
		}
		if err := loadSources(r.Context(), st, idx, mem, &dyn); err != nil {
			l.Error("reload_error", "err", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	addr := utils.EnvString("ADDR", ":8080")
	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(handler)
	s := &http.Server{Addr: addr, Handler: handler}
	go func() {
		<-ctx.Done()
		l.Info("shutdown")
		_ = s.Shutdown(context.Background())
	}()
	if utils.EnvBool("TLS_ENABLE", false) {
		certPath := utils.EnvString("TLS_CERT_PATH", filepath.Join("data", "certs", "server.crt"))
		keyPath := utils.EnvString("TLS_KEY_PATH", filepath.Join("data", "certs", "server.key"))
		var hosts []string
		if h := os.Getenv("TLS_HOSTS"); h != "" {
			hosts = strings.Split(h, ",")
		}
		if err := utils.EnsureSelfSignedCert(certPath, keyPath, "sky-htm.local", hosts...); err != nil {
			l.Error("tls_cert_error", "err", err)
			os.Exit(1)
		}
		l.Info("listening_tls", "addr", addr, "cert", certPath)
		_ = s.ListenAndServeTLS(certPath, keyPath)
		return
	}
	l.Info("listening", "addr", addr)
	_ = s.ListenAndServe()
}

// prepareDB：重算旧层级的 htm_id、按需初始化导入、装载数据源并启动每周刷新
func prepareDB(ctx context.Context, st *store.Store, idx *htm.Index, mem *catalog.Catalog, dyn *catalog.Dynamic) {
	l := logger.L()
	if n, err := st.Reindex(ctx, idx.IDByRaDec); err != nil {
		l.Error("reindex_error", "err", err)
	} else if n > 0 {
		l.Info("reindex_ok", "count", n)
	}
	src := os.Getenv("CATALOG_SRC")
	if src != "" {
		if err := ingest.EnsureInitialized(ctx, src, idx, st); err != nil {
			l.Error("ingest_init_error", "err", err)
		}
	}
	if err := loadSources(ctx, st, idx, mem, dyn); err != nil {
		l.Error("catalog_load_error", "err", err)
	}
	if src != "" && utils.EnvBool("INGEST_WEEKLY", false) {
		ingest.StartWeekly(ctx, func(ctx context.Context) error {
			if _, err := ingest.FetchAndImport(ctx, src, idx, st); err != nil {
				return err
			}
			return loadSources(ctx, st, idx, mem, dyn)
		})
	}
}

// 文档注释：装载查询数据源
// 背景：对象表读入内存目录；配置 FACECACHE_DIR 时同时生成分片文件。数据源链为
//
//	分片文件 → 内存目录 → 数据库，前者出错时自动回退。
//
// 约束：切换通过 Dynamic.Set 原子完成，进行中的查询不受影响。
func loadSources(ctx context.Context, st *store.Store, idx *htm.Index, mem *catalog.Catalog, dyn *catalog.Dynamic) error {
	l := logger.L()
	objs, err := st.AllObjects(ctx)
	if err != nil {
		return err
	}
	if err := mem.InsertObjects(ctx, objs); err != nil {
		return err
	}
	l.Info("catalog_memory_ready", "objects", mem.Len())
	var fc catalog.Source
	if dir := os.Getenv("FACECACHE_DIR"); dir != "" {
		if err := catalog.BuildFaceFiles(dir, idx.Level(), objs); err != nil {
			l.Error("facecache_build_error", "err", err)
		} else if c, err := catalog.NewFaceCache(dir, idx.Level()); err != nil {
			l.Error("facecache_open_error", "err", err)
		} else {
			fc = c
		}
	}
	if fc != nil {
		dyn.Set(catalog.NewChain(fc, mem, st))
	} else {
		dyn.Set(catalog.NewChain(mem, st))
	}
	l.Debug("source_stack", "facecache", fc != nil)
	return nil
}
