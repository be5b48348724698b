// 包 store: 提供与 PostgreSQL 的数据访问层，包含按 HTM 区间的对象查询与统计读写
package store

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"sky-htm/internal/catalog"
	"sky-htm/internal/htmrange"
	"sky-htm/internal/logger"
)

// maxIntervalsPerQuery 单条 SQL 中 BETWEEN 子句的上限，超出时分批查询
const maxIntervalsPerQuery = 100

const objectColumns = "id, name, ra, dec, mag, kind, htm_id"

// Store: 数据库访问入口，持有连接池与对象表所用的 HTM 层级
type Store struct {
	db    *sql.DB
	level int
}

func AttachDB(db *sql.DB, level int) *Store { return &Store{db: db, level: level} }

// Open: 使用 DSN 打开数据库连接并配置连接池参数
func Open(dsn string, level int) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	return &Store{db: db, level: level}, nil
}

// Close: 关闭数据库连接
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Level() int { return s.level }

// rangeQuery: 生成按叶子区间取对象的 SQL 与参数
// 约束：$1 固定为层级，之后每个区间占两个占位符；结果按 (htm_id, id) 升序。
func rangeQuery(level int, ivs []htmrange.Interval) (string, []any) {
	var b strings.Builder
	args := make([]any, 0, 1+2*len(ivs))
	args = append(args, level)
	b.WriteString("SELECT " + objectColumns + " FROM _sky_objects WHERE htm_level=$1 AND (")
	for i, iv := range ivs {
		if i > 0 {
			b.WriteString(" OR ")
		}
		n := len(args)
		b.WriteString("htm_id BETWEEN $" + strconv.Itoa(n+1) + " AND $" + strconv.Itoa(n+2))
		args = append(args, int64(iv.Lo), int64(iv.Hi))
	}
	b.WriteString(") ORDER BY htm_id, id")
	return b.String(), args
}

func scanObjects(rows *sql.Rows) ([]catalog.Object, error) {
	defer rows.Close()
	var out []catalog.Object
	for rows.Next() {
		var o catalog.Object
		var id, leaf int64
		if err := rows.Scan(&id, &o.Name, &o.RA, &o.Dec, &o.Mag, &o.Kind, &leaf); err != nil {
			return nil, errors.Wrap(err, "scan object")
		}
		o.ID, o.Leaf = uint64(id), uint64(leaf)
		out = append(out, o)
	}
	return out, errors.Wrap(rows.Err(), "iterate objects")
}

// 文档注释：按叶子区间查询对象
// 背景：区间来自求交结果（已 defrag），每批最多 maxIntervalsPerQuery 个 BETWEEN 子句；htm_id 上有索引。
// 约束：实现 catalog.Source，可直接作为 Resolve 的数据源或 Chain 的一环。
func (s *Store) ObjectsInRanges(ctx context.Context, ivs []htmrange.Interval) ([]catalog.Object, error) {
	var out []catalog.Object
	for start := 0; start < len(ivs); start += maxIntervalsPerQuery {
		end := min(start+maxIntervalsPerQuery, len(ivs))
		q, args := rangeQuery(s.level, ivs[start:end])
		rows, err := s.db.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, errors.Wrap(err, "query objects in ranges")
		}
		objs, err := scanObjects(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, objs...)
	}
	logger.L().Debug("db_ranges_done", "intervals", len(ivs), "objects", len(out))
	return out, nil
}

// ObjectByName: 按名称查找对象，未命中返回 nil
func (s *Store) ObjectByName(ctx context.Context, name string) (*catalog.Object, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+objectColumns+" FROM _sky_objects WHERE name=$1 AND htm_level=$2 LIMIT 1", name, s.level)
	if err != nil {
		return nil, errors.Wrap(err, "query object by name")
	}
	objs, err := scanObjects(rows)
	if err != nil || len(objs) == 0 {
		return nil, err
	}
	return &objs[0], nil
}

// AllObjects: 读出全部对象（启动时装载内存目录与生成分片文件）
func (s *Store) AllObjects(ctx context.Context) ([]catalog.Object, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+objectColumns+" FROM _sky_objects WHERE htm_level=$1 ORDER BY htm_id, id", s.level)
	if err != nil {
		return nil, errors.Wrap(err, "query all objects")
	}
	return scanObjects(rows)
}

// CountObjects: 当前层级下的对象数
func (s *Store) CountObjects(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM _sky_objects WHERE htm_level=$1", s.level).Scan(&n)
	return n, errors.Wrap(err, "count objects")
}

// 文档注释：批量写入对象（同名覆盖）
// 背景：单事务 + 预编译语句；由导入器按批调用，降低锁持有与 WAL 压力。
// 约束：对象的 Leaf 必须已按 s.level 计算。
func (s *Store) InsertObjects(ctx context.Context, objs []catalog.Object) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO _sky_objects(name, ra, dec, mag, kind, htm_id, htm_level)
        VALUES($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (name) DO UPDATE SET ra=EXCLUDED.ra, dec=EXCLUDED.dec, mag=EXCLUDED.mag, kind=EXCLUDED.kind, htm_id=EXCLUDED.htm_id, htm_level=EXCLUDED.htm_level`)
	if err != nil {
		return errors.Wrap(err, "prepare insert")
	}
	defer stmt.Close()
	for _, o := range objs {
		if _, err := stmt.ExecContext(ctx, o.Name, o.RA, o.Dec, o.Mag, o.Kind, int64(o.Leaf), s.level); err != nil {
			return errors.Wrapf(err, "insert %q", o.Name)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}
	logger.L().Debug("db_insert_objects", "count", len(objs))
	return nil
}

// 文档注释：按新层级重算全部对象的 htm_id
// 背景：HTM_LEVEL 变更后旧 htm_id 不再可用；leafOf 由调用方提供（通常为 Index.IDByRaDec）。
// 返回：更新的行数。
func (s *Store) Reindex(ctx context.Context, leafOf func(ra, dec float64) uint64) (int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, ra, dec FROM _sky_objects WHERE htm_level<>$1", s.level)
	if err != nil {
		return 0, errors.Wrap(err, "query stale objects")
	}
	type stale struct {
		id      int64
		ra, dec float64
	}
	var todo []stale
	for rows.Next() {
		var x stale
		if err := rows.Scan(&x.id, &x.ra, &x.dec); err != nil {
			rows.Close()
			return 0, errors.Wrap(err, "scan stale object")
		}
		todo = append(todo, x)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, errors.Wrap(err, "iterate stale objects")
	}
	for _, x := range todo {
		if _, err := s.db.ExecContext(ctx, "UPDATE _sky_objects SET htm_id=$1, htm_level=$2 WHERE id=$3",
			int64(leafOf(x.ra, x.dec)), s.level, x.id); err != nil {
			return 0, errors.Wrapf(err, "reindex object %d", x.id)
		}
	}
	logger.L().Info("db_reindex_done", "level", s.level, "count", len(todo))
	return len(todo), nil
}

// IncrStats: 成功查询后递增总计与当日计数，并按查询类型累加
func (s *Store) IncrStats(ctx context.Context, op string) error {
	_, _ = s.db.ExecContext(ctx, "UPDATE _sky_stats_total SET total_queries=total_queries+1 WHERE id=1")
	_, _ = s.db.ExecContext(ctx, "INSERT INTO _sky_stats_daily(day, queries) VALUES(current_date, 1) ON CONFLICT (day) DO UPDATE SET queries=_sky_stats_daily.queries+1")
	if op != "" {
		_, _ = s.db.ExecContext(ctx, "INSERT INTO _sky_stats_ops(op, queries) VALUES($1, 1) ON CONFLICT (op) DO UPDATE SET queries=_sky_stats_ops.queries+1", op)
	}
	logger.L().Debug("stats_incr", "op", op)
	return nil
}

// Totals: 统计返回结构，包含累计、当日与按查询类型的次数
type Totals struct {
	Total int64            `json:"total"`
	Today int64            `json:"today"`
	ByOp  map[string]int64 `json:"by_op"`
}

// GetTotals: 读取累计与当日查询次数，用于接口返回
func (s *Store) GetTotals(ctx context.Context) (*Totals, error) {
	t := Totals{ByOp: map[string]int64{}}
	_ = s.db.QueryRowContext(ctx, "SELECT total_queries FROM _sky_stats_total WHERE id=1").Scan(&t.Total)
	_ = s.db.QueryRowContext(ctx, "SELECT queries FROM _sky_stats_daily WHERE day=current_date").Scan(&t.Today)
	rows, err := s.db.QueryContext(ctx, "SELECT op, queries FROM _sky_stats_ops")
	if err != nil {
		return nil, errors.Wrap(err, "query op stats")
	}
	defer rows.Close()
	for rows.Next() {
		var op string
		var n int64
		if err := rows.Scan(&op, &n); err != nil {
			return nil, errors.Wrap(err, "scan op stats")
		}
		t.ByOp[op] = n
	}
	logger.L().Debug("stats_totals", "total", t.Total, "today", t.Today)
	return &t, nil
}
