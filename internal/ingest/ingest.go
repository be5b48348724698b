// 包 ingest：提供目录数据拉取与批量导入逻辑，作为离线数据通道
package ingest

import (
	"bufio"
	"context"
	"io"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"sky-htm/internal/catalog"
	"sky-htm/internal/htm"
	"sky-htm/internal/logger"
)

// BatchSize 每批提交的对象数
const BatchSize = 5000

// Sink 接收一批对象（*store.Store 与 *catalog.Catalog 均满足）
type Sink interface {
	InsertObjects(ctx context.Context, objs []catalog.Object) error
}

// Stats 一次导入的计数
type Stats struct {
	Lines    int
	Imported int
	Skipped  int
	Bytes    int64
}

// ParseLine：解析一行 `ra|dec|name|mag|kind`
// 约束：ra/dec 以度为单位，ra 归一化到 [0,360)，|dec|>90 报错；mag 与 kind 可省略，name 不可为空。
func ParseLine(line string) (catalog.Object, error) {
	var o catalog.Object
	parts := strings.Split(line, "|")
	if len(parts) < 3 {
		return o, errors.Errorf("want at least 3 fields, got %d", len(parts))
	}
	ra, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return o, errors.Wrap(err, "ra")
	}
	dec, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return o, errors.Wrap(err, "dec")
	}
	if math.IsNaN(ra) || math.IsInf(ra, 0) || math.IsNaN(dec) || dec < -90 || dec > 90 {
		return o, errors.Errorf("coordinates out of range: %v %v", ra, dec)
	}
	if ra = math.Mod(ra, 360); ra < 0 {
		ra += 360
	}
	o.RA, o.Dec = ra, dec
	o.Name = strings.TrimSpace(parts[2])
	if o.Name == "" {
		return o, errors.New("empty name")
	}
	if len(parts) > 3 && strings.TrimSpace(parts[3]) != "" {
		if o.Mag, err = strconv.ParseFloat(strings.TrimSpace(parts[3]), 64); err != nil {
			return o, errors.Wrap(err, "mag")
		}
	}
	if len(parts) > 4 {
		o.Kind = strings.TrimSpace(parts[4])
	}
	return o, nil
}

// 文档注释：按行导入对象
// 背景：空行与 # 注释行跳过；解析失败的行计入 Skipped 并记录日志，不中断导入；每 BatchSize 条提交一次。
// 约束：叶子 id 由 idx 计算；sink 出错立即返回，之前已提交的批次保留。
func Import(ctx context.Context, r io.Reader, idx *htm.Index, sink Sink) (Stats, error) {
	var st Stats
	rd := bufio.NewScanner(r)
	rd.Buffer(make([]byte, 1024), 1024*1024)
	batch := make([]catalog.Object, 0, BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := sink.InsertObjects(ctx, batch); err != nil {
			return errors.Wrapf(err, "batch ending at line %d", st.Lines)
		}
		st.Imported += len(batch)
		batch = batch[:0]
		logger.L().Info("ingest_progress", "count", humanize.Comma(int64(st.Imported)), "read", humanize.Bytes(uint64(st.Bytes)))
		return nil
	}
	for rd.Scan() {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		st.Lines++
		st.Bytes += int64(len(rd.Bytes())) + 1
		line := strings.TrimSpace(rd.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		o, err := ParseLine(line)
		if err != nil {
			st.Skipped++
			logger.L().Debug("ingest_skip", "line", st.Lines, "err", err)
			continue
		}
		o.Leaf = idx.IDByRaDec(o.RA, o.Dec)
		batch = append(batch, o)
		if len(batch) == BatchSize {
			if err := flush(); err != nil {
				return st, err
			}
		}
	}
	if err := rd.Err(); err != nil {
		return st, errors.Wrap(err, "read input")
	}
	if err := flush(); err != nil {
		return st, err
	}
	logger.L().Info("ingest_done", "imported", humanize.Comma(int64(st.Imported)), "skipped", st.Skipped, "level", idx.Level())
	return st, nil
}

// open：src 为 http(s) URL 时拉取，否则按本地文件打开
func open(ctx context.Context, src string) (io.ReadCloser, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, errors.Wrap(err, "build request")
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, errors.Wrapf(err, "fetch %s", src)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, errors.Errorf("fetch %s: bad status %d", src, resp.StatusCode)
		}
		return resp.Body, nil
	}
	f, err := os.Open(src)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog file")
	}
	return f, nil
}

// FetchAndImport：拉取目录源（URL 或文件）并批量写入 sink
// 异常：网络错误/数据库错误直接返回，不做重试（交由调度层处理）
func FetchAndImport(ctx context.Context, src string, idx *htm.Index, sink Sink) (Stats, error) {
	logger.L().Info("ingest_start", "src", src)
	rc, err := open(ctx, src)
	if err != nil {
		return Stats{}, err
	}
	defer rc.Close()
	return Import(ctx, rc, idx, sink)
}

// Counter 报告已有对象数
type Counter interface {
	CountObjects(ctx context.Context) (int64, error)
}

// EnsureInitialized：对象表为空时执行一次初始化导入
func EnsureInitialized(ctx context.Context, src string, idx *htm.Index, sink interface {
	Sink
	Counter
}) error {
	n, err := sink.CountObjects(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.L().Debug("ingest_skip_initialized", "objects", n)
		return nil
	}
	_, err = FetchAndImport(ctx, src, idx, sink)
	return err
}
