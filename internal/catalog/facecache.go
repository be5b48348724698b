package catalog

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/golang/snappy"
	"github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"sky-htm/internal/htmrange"
	"sky-htm/internal/logger"
)

const faceMagic = "HTMF"

// minRecordSize 定长字段 40 字节加类别与名称的长度前缀
const minRecordSize = 40 + 1 + 2

var errShardCorrupt = errors.New("face shard corrupt")

func faceFile(dir string, root uint64) string {
	return filepath.Join(dir, "face-"+strconv.FormatUint(root, 10)+".bin")
}

// 文档注释：按根三角形分片写出对象文件
// 背景：每个根三角形（8..15）一份 face-<id>.bin，按叶子 id 升序排列，首次查询涉及该面时才加载；适合低内存部署。
// 文件格式（snappy 压缩前）：
// - 头部：magic "HTMF" + level(uint32 BE) + count(uint32 BE)；
// - 记录：leaf(uint64) id(uint64) ra dec mag(float64 位) + kind(uint8 长度+字节) + name(uint16 长度+字节)。
// 约束：对象的 Leaf 必须按 level 计算；先写临时文件再 rename，避免读到半截分片。
func BuildFaceFiles(dir string, level int, objs []Object) error {
	logger.L().Debug("facecache_build_begin", "dir", dir, "level", level, "objects", len(objs))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "mkdir face dir")
	}
	shift := uint(2 * level)
	buckets := make(map[uint64][]Object)
	for _, o := range objs {
		root := o.Leaf >> shift
		if root < 8 || root > 15 {
			return errors.Errorf("object %d: leaf %d not at level %d", o.ID, o.Leaf, level)
		}
		buckets[root] = append(buckets[root], o)
	}
	for root := uint64(8); root <= 15; root++ {
		arr := buckets[root]
		sort.Slice(arr, func(i, j int) bool { return lessObject(&arr[i], &arr[j]) })
		raw, err := encodeShard(level, arr)
		if err != nil {
			return err
		}
		fp := faceFile(dir, root)
		tmp := fp + ".tmp"
		if err := os.WriteFile(tmp, snappy.Encode(nil, raw), 0o644); err != nil {
			return errors.Wrapf(err, "write %s", tmp)
		}
		if err := os.Rename(tmp, fp); err != nil {
			return errors.Wrapf(err, "rename %s", tmp)
		}
		logger.L().Debug("facecache_shard_written", "face", root, "count", len(arr))
	}
	logger.L().Info("facecache_build_done", "dir", dir)
	return nil
}

func encodeShard(level int, arr []Object) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(faceMagic)
	_ = binary.Write(&buf, binary.BigEndian, uint32(level))
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(arr)))
	for _, o := range arr {
		if len(o.Kind) > math.MaxUint8 || len(o.Name) > math.MaxUint16 {
			return nil, errors.Errorf("object %d: name or kind too long", o.ID)
		}
		var rec [40]byte
		binary.BigEndian.PutUint64(rec[0:], o.Leaf)
		binary.BigEndian.PutUint64(rec[8:], o.ID)
		binary.BigEndian.PutUint64(rec[16:], math.Float64bits(o.RA))
		binary.BigEndian.PutUint64(rec[24:], math.Float64bits(o.Dec))
		binary.BigEndian.PutUint64(rec[32:], math.Float64bits(o.Mag))
		buf.Write(rec[:])
		buf.WriteByte(byte(len(o.Kind)))
		buf.WriteString(o.Kind)
		_ = binary.Write(&buf, binary.BigEndian, uint16(len(o.Name)))
		buf.WriteString(o.Name)
	}
	return buf.Bytes(), nil
}

func decodeShard(data []byte, level int) ([]Object, error) {
	if len(data) < 12 || string(data[:4]) != faceMagic {
		return nil, errShardCorrupt
	}
	if got := int(binary.BigEndian.Uint32(data[4:8])); got != level {
		return nil, errors.Errorf("face shard level %d, want %d", got, level)
	}
	n := int(binary.BigEndian.Uint32(data[8:12]))
	if n > (len(data)-12)/minRecordSize {
		return nil, errShardCorrupt
	}
	recs := make([]Object, 0, n)
	off := 12
	for i := 0; i < n; i++ {
		if off+41 > len(data) {
			return nil, errShardCorrupt
		}
		var o Object
		o.Leaf = binary.BigEndian.Uint64(data[off:])
		o.ID = binary.BigEndian.Uint64(data[off+8:])
		o.RA = math.Float64frombits(binary.BigEndian.Uint64(data[off+16:]))
		o.Dec = math.Float64frombits(binary.BigEndian.Uint64(data[off+24:]))
		o.Mag = math.Float64frombits(binary.BigEndian.Uint64(data[off+32:]))
		off += 40
		kl := int(data[off])
		off++
		if off+kl+2 > len(data) {
			return nil, errShardCorrupt
		}
		o.Kind = string(data[off : off+kl])
		off += kl
		nl := int(binary.BigEndian.Uint16(data[off:]))
		off += 2
		if off+nl > len(data) {
			return nil, errShardCorrupt
		}
		o.Name = string(data[off : off+nl])
		off += nl
		recs = append(recs, o)
	}
	return recs, nil
}

// 文档注释：分片文件数据源
// 背景：按根三角形延迟加载分片并放入 LRU；查询时对叶子 id 二分定位后顺序扫描。
// 约束：分片缺失视为该面无对象；分片损坏返回错误以便 Chain 回退到下一数据源。
type FaceCache struct {
	dir   string
	level int
	mu    sync.Mutex
	faces *lru.Cache[uint64, []Object]
}

func NewFaceCache(dir string, level int) (*FaceCache, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, errors.Wrap(err, "face dir")
	}
	c, err := lru.New[uint64, []Object](8)
	if err != nil {
		return nil, err
	}
	logger.L().Debug("facecache_init", "dir", dir, "level", level)
	return &FaceCache{dir: dir, level: level, faces: c}, nil
}

func (c *FaceCache) face(root uint64) ([]Object, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if arr, ok := c.faces.Get(root); ok {
		return arr, nil
	}
	fp := faceFile(c.dir, root)
	data, err := os.ReadFile(fp)
	if errors.Is(err, os.ErrNotExist) {
		c.faces.Add(root, nil)
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", fp)
	}
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", fp)
	}
	arr, err := decodeShard(raw, c.level)
	if err != nil {
		return nil, errors.Wrap(err, fp)
	}
	logger.L().Debug("facecache_shard_load", "face", root, "size", len(data), "count", len(arr))
	c.faces.Add(root, arr)
	return arr, nil
}

func (c *FaceCache) ObjectsInRanges(ctx context.Context, ivs []htmrange.Interval) ([]Object, error) {
	shift := uint(2 * c.level)
	var out []Object
	for _, iv := range ivs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lo, hi := iv.Lo>>shift, iv.Hi>>shift
		for root := max(lo, 8); root <= min(hi, 15); root++ {
			arr, err := c.face(root)
			if err != nil {
				return nil, err
			}
			i := sort.Search(len(arr), func(i int) bool { return arr[i].Leaf >= iv.Lo })
			for ; i < len(arr) && arr[i].Leaf <= iv.Hi; i++ {
				out = append(out, arr[i])
			}
		}
	}
	return out, nil
}
