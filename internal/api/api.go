// 包 api：集中注册 HTTP API 路由以解耦主入口，便于后续扩展与替换
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang/geo/s1"
	"github.com/redis/go-redis/v9"

	"sky-htm/internal/catalog"
	"sky-htm/internal/htm"
	"sky-htm/internal/htmrange"
	"sky-htm/internal/logger"
	"sky-htm/internal/metrics"
	"sky-htm/internal/spatial"
	"sky-htm/internal/store"
)

// StatsStore 查询统计读写（*store.Store 满足）
type StatsStore interface {
	IncrStats(ctx context.Context, op string) error
	GetTotals(ctx context.Context) (*store.Totals, error)
}

// ObjectFinder 按名称查对象（*store.Store 与 *catalog.Catalog 满足）
type ObjectFinder interface {
	ObjectByName(ctx context.Context, name string) (*catalog.Object, error)
}

// NearestFinder 最近对象查询（*catalog.Catalog 满足）
type NearestFinder interface {
	Nearest(v spatial.Vector, maxRadius s1.Angle) (catalog.Object, s1.Angle, bool)
}

// Options 路由依赖；除 Index 外均可为空
type Options struct {
	Index      *htm.Index
	Source     catalog.Source
	Names      ObjectFinder
	Nearest    NearestFinder
	Stats      StatsStore
	Redis      *redis.Client
	LRUSize    int
	CacheTTL   time.Duration
	MaxObjects int
}

type server struct {
	idx        *htm.Index
	hi         *htm.Interface
	src        catalog.Source
	names      ObjectFinder
	nearest    NearestFinder
	stats      StatsStore
	rc         *redis.Client
	cache      *Cache
	maxObjects int
}

// 区域查询应答：叶子区间（已按上限合并）与可选的目录对象
type regionReply struct {
	Depth     int                 `json:"depth"`
	Ranges    []htmrange.Interval `json:"ranges"`
	Leaves    uint64              `json:"leaves"`
	Objects   []catalog.Object    `json:"objects,omitempty"`
	Truncated bool                `json:"truncated,omitempty"`
}

type trixelReply struct {
	ID      uint64        `json:"id"`
	Name    string        `json:"name"`
	Level   int           `json:"level"`
	Center  [2]float64    `json:"center"`
	Corners [3][2]float64 `json:"corners"`
}

type objectReply struct {
	catalog.Object
	Trixel string `json:"trixel"`
}

func radec(v spatial.Vector) [2]float64 { return [2]float64{v.RA(), v.Dec()} }

// 构建并返回 API 路由：独立 ServeMux 便于在主入口挂载到 API 前缀
func BuildRoutes(o Options) *http.ServeMux {
	s := &server{
		idx:        o.Index,
		hi:         htm.NewInterface(),
		src:        o.Source,
		names:      o.Names,
		nearest:    o.Nearest,
		stats:      o.Stats,
		rc:         o.Redis,
		cache:      NewCache(o.LRUSize, o.Redis, o.CacheTTL),
		maxObjects: o.MaxObjects,
	}
	if s.maxObjects <= 0 {
		s.maxObjects = 10000
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/lookup", s.handleLookup)
	mux.HandleFunc("/trixel", s.handleTrixel)
	mux.HandleFunc("/object", s.handleObject)
	mux.HandleFunc("/nearest", s.handleNearest)
	mux.HandleFunc("/cone", s.regionHandler("cone", s.coneRegion))
	mux.HandleFunc("/hull", s.regionHandler("hull", s.hullRegion))
	mux.HandleFunc("/domain", s.regionHandler("domain", s.domainRegion))
	mux.HandleFunc("/cmd", s.handleCmd)
	mux.HandleFunc("/stats", s.handleStats)
	return mux
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, body []byte) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	_, _ = w.Write(body)
}

// badRequest 记录错误计数并返回 400
func badRequest(w http.ResponseWriter, op string, err error) {
	metrics.QueryErrorsTotal.WithLabelValues(op).Inc()
	logger.L().Debug("api_bad_request", "op", op, "err", err)
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
}

func floatParam(q url.Values, name string) (float64, error) {
	s := q.Get(name)
	if s == "" {
		return 0, errors.New("missing parameter " + name)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.New("bad parameter " + name)
	}
	return v, nil
}

func (s *server) depthParam(q url.Values) (int, error) {
	v := q.Get("depth")
	if v == "" {
		return s.idx.Level(), nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n > htm.MaxDepth {
		return 0, htm.ErrDepth
	}
	return n, nil
}

// pointParam 读取 ra/dec（度）或 x/y/z
func pointParam(q url.Values) (spatial.Vector, error) {
	if q.Has("x") || q.Has("y") || q.Has("z") {
		var c [3]float64
		for i, n := range []string{"x", "y", "z"} {
			v, err := floatParam(q, n)
			if err != nil {
				return spatial.Vector{}, err
			}
			c[i] = v
		}
		v := spatial.NewVector(c[0], c[1], c[2])
		if v.IsZero() {
			return v, errors.New("zero vector")
		}
		return v, nil
	}
	ra, err := floatParam(q, "ra")
	if err != nil {
		return spatial.Vector{}, err
	}
	dec, err := floatParam(q, "dec")
	if err != nil {
		return spatial.Vector{}, err
	}
	if dec < -90 || dec > 90 {
		return spatial.Vector{}, errors.New("dec out of range")
	}
	return spatial.NewVectorRaDec(ra, dec), nil
}

// countQuery 同一访客同一查询在去重窗口内只计一次
func (s *server) countQuery(r *http.Request, op string, key uint64) {
	if s.stats == nil {
		return
	}
	ctx := r.Context()
	data := []byte(getVisitorIP(r) + "|" + strconv.FormatUint(key, 16))
	first, err := bloomCheckAndSet(ctx, s.rc, "htm:bloom:"+time.Now().UTC().Format("20060102"), bloomPositions(data, 1<<20, 4), 24*time.Hour)
	if err != nil {
		logger.L().Debug("bloom_error", "err", err)
	}
	if !first {
		return
	}
	if err := s.stats.IncrStats(ctx, op); err != nil {
		logger.L().Debug("stats_incr_error", "op", op, "err", err)
	}
}

func (s *server) handleLookup(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	metrics.QueriesTotal.WithLabelValues("lookup").Inc()
	q := r.URL.Query()
	v, err := pointParam(q)
	if err != nil {
		badRequest(w, "lookup", err)
		return
	}
	depth, err := s.depthParam(q)
	if err != nil {
		badRequest(w, "lookup", err)
		return
	}
	id, err := s.hi.LookupID(depth, v)
	if err != nil {
		badRequest(w, "lookup", err)
		return
	}
	name, _ := htm.NameByID(id)
	s.countQuery(r, "lookup", cacheKey("lookup", q))
	metrics.QueryDurationMs.WithLabelValues("lookup").Observe(float64(time.Since(start).Milliseconds()))
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "name": name, "depth": depth, "ra": v.RA(), "dec": v.Dec()})
}

func (s *server) handleTrixel(w http.ResponseWriter, r *http.Request) {
	metrics.QueriesTotal.WithLabelValues("trixel").Inc()
	q := r.URL.Query()
	var id uint64
	var err error
	switch {
	case q.Get("name") != "":
		id, err = htm.IDByName(q.Get("name"))
	case q.Get("id") != "":
		id, err = strconv.ParseUint(q.Get("id"), 10, 64)
	default:
		err = errors.New("missing parameter name or id")
	}
	if err != nil {
		badRequest(w, "trixel", err)
		return
	}
	name, err := htm.NameByID(id)
	if err != nil {
		badRequest(w, "trixel", err)
		return
	}
	level, _ := htm.LevelOf(id)
	v0, v1, v2, _ := htm.Vertices(id)
	center, _ := htm.PointByID(id)
	writeJSON(w, http.StatusOK, trixelReply{
		ID: id, Name: name, Level: level,
		Center:  radec(center),
		Corners: [3][2]float64{radec(v0), radec(v1), radec(v2)},
	})
}

func (s *server) handleObject(w http.ResponseWriter, r *http.Request) {
	metrics.QueriesTotal.WithLabelValues("object").Inc()
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		badRequest(w, "object", errors.New("missing parameter name"))
		return
	}
	if s.names == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "catalog unavailable"})
		return
	}
	o, err := s.names.ObjectByName(r.Context(), name)
	if err != nil {
		logger.L().Error("object_lookup_error", "name", name, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
		return
	}
	if o == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	trixel, _ := htm.NameByID(s.idx.IDByRaDec(o.RA, o.Dec))
	writeJSON(w, http.StatusOK, objectReply{Object: *o, Trixel: trixel})
}

// handleNearest 最近对象；radius（角分）可选
func (s *server) handleNearest(w http.ResponseWriter, r *http.Request) {
	metrics.QueriesTotal.WithLabelValues("nearest").Inc()
	if s.nearest == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "catalog unavailable"})
		return
	}
	q := r.URL.Query()
	v, err := pointParam(q)
	if err != nil {
		badRequest(w, "nearest", err)
		return
	}
	var limit s1.Angle
	if q.Get("radius") != "" {
		arcmin, err := floatParam(q, "radius")
		if err != nil || arcmin < 0 {
			badRequest(w, "nearest", errors.New("bad parameter radius"))
			return
		}
		limit = s1.Angle(arcmin/60) * s1.Degree
	}
	o, ang, ok := s.nearest.Nearest(v, limit)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	s.countQuery(r, "nearest", cacheKey("nearest", q))
	writeJSON(w, http.StatusOK, map[string]any{"object": o, "distance_arcmin": ang.Degrees() * 60})
}

func (s *server) coneRegion(q url.Values) (*spatial.Domain, error) {
	v, err := pointParam(q)
	if err != nil {
		return nil, err
	}
	radius, err := floatParam(q, "radius")
	if err != nil {
		return nil, err
	}
	if radius < 0 || radius > 180*60 {
		return nil, errors.New("radius out of range")
	}
	return spatial.NewDomain(spatial.NewConvex(spatial.NewCapArcmin(v.RA(), v.Dec(), radius))), nil
}

func (s *server) hullRegion(q url.Values) (*spatial.Domain, error) {
	raw := q.Get("radec")
	if raw == "" {
		return nil, errors.New("missing parameter radec")
	}
	parts := strings.Split(raw, ",")
	nums := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, errors.New("bad parameter radec")
		}
		nums = append(nums, v)
	}
	if len(nums)%2 != 0 {
		return nil, errors.New("radec needs ra,dec pairs")
	}
	c, err := spatial.NewHullConvexRaDec(nums)
	if err != nil {
		return nil, err
	}
	return spatial.NewDomain(c), nil
}

// domainRegion 解析 q 中的 DOMAIN 文本；depth 以文本内层级为准
func (s *server) domainRegion(q url.Values) (*spatial.Domain, error) {
	text := q.Get("q")
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(text)), "DOMAIN") {
		text = "DOMAIN " + text
	}
	depth, d, err := htm.ParseDomain(text)
	if err != nil {
		return nil, err
	}
	q.Set("depth", strconv.Itoa(depth))
	return d, nil
}

// 文档注释：区域查询处理器
// 背景：参数规范化后做缓存键；命中直接返回。未命中时按请求层级求交得到区间（至多 htm.MaxRanges 个），
//
//	objects=1 时另在目录层级求交并用区域做精确判定取回对象，数量超过上限时截断。
//
// 约束：POST 请求体作为 q 参数（DOMAIN 文本）；区间为空时计入空结果指标。
func (s *server) regionHandler(op string, build func(url.Values) (*spatial.Domain, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		metrics.QueriesTotal.WithLabelValues(op).Inc()
		q := r.URL.Query()
		if r.Method == http.MethodPost {
			b, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
			if err != nil {
				badRequest(w, op, err)
				return
			}
			q.Set("q", string(b))
		}
		key := cacheKey(op, q)
		if body, ok := s.cache.Get(ctx, key); ok {
			writeRaw(w, body)
			s.countQuery(r, op, key)
			return
		}
		d, err := build(q)
		if err != nil {
			badRequest(w, op, err)
			return
		}
		depth, err := s.depthParam(q)
		if err != nil {
			badRequest(w, op, err)
			return
		}
		ranges, err := s.hi.Domain(ctx, depth, d)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			badRequest(w, op, err)
			return
		}
		reply := regionReply{Depth: depth, Ranges: ranges}
		for _, iv := range ranges {
			reply.Leaves += iv.Hi - iv.Lo + 1
		}
		if want, _ := strconv.ParseBool(q.Get("objects")); want && s.src != nil {
			res, err := s.idx.IntersectDomain(ctx, d)
			if err == nil {
				metrics.NodesVisited.Observe(float64(res.Stats.Nodes))
				reply.Objects, err = catalog.Resolve(ctx, s.src, res, d)
			}
			if err != nil {
				logger.L().Error("region_objects_error", "op", op, "err", err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "catalog query failed"})
				return
			}
			if len(reply.Objects) > s.maxObjects {
				reply.Objects = reply.Objects[:s.maxObjects]
				reply.Truncated = true
			}
			metrics.ObjectsReturned.Observe(float64(len(reply.Objects)))
		}
		if len(ranges) == 0 {
			metrics.EmptyResultsTotal.Inc()
		}
		metrics.ResultIntervals.Observe(float64(len(ranges)))
		body, _ := json.Marshal(reply)
		s.cache.Set(ctx, key, body)
		s.countQuery(r, op, key)
		metrics.QueryDurationMs.WithLabelValues(op).Observe(float64(time.Since(start).Milliseconds()))
		logger.L().Debug("region_query_done", "op", op, "depth", depth, "ranges", len(ranges), "objects", len(reply.Objects))
		writeRaw(w, body)
	}
}

// handleCmd 直接执行一条文本命令（J2000/CARTESIAN/NAME/ID/DOMAIN）
func (s *server) handleCmd(w http.ResponseWriter, r *http.Request) {
	metrics.QueriesTotal.WithLabelValues("cmd").Inc()
	q := r.URL.Query()
	reply, err := s.hi.Exec(r.Context(), q.Get("q"))
	if err != nil {
		badRequest(w, "cmd", err)
		return
	}
	s.countQuery(r, "cmd", cacheKey("cmd", q))
	writeJSON(w, http.StatusOK, reply)
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeJSON(w, http.StatusOK, store.Totals{ByOp: map[string]int64{}})
		return
	}
	t, err := s.stats.GetTotals(r.Context())
	if err != nil {
		logger.L().Error("stats_error", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "stats unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, t)
}
