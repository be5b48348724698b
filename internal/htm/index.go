// 包 htm：层级三角网格（HTM）编号、点定位与区域求交
package htm

import (
	"fmt"
	"math"
	"math/bits"
	"strings"

	"sky-htm/internal/spatial"
)

const (
	// MaxDepth 支持的最大层级；叶子 id 占 2*level+4 位
	MaxDepth = 25
	// DefaultDepth 未配置时使用的层级
	DefaultDepth = 6
)

// 八面体的六个顶点
var baseVertices = [6]spatial.Vector{
	spatial.NewVector(0, 0, 1),
	spatial.NewVector(1, 0, 0),
	spatial.NewVector(0, 1, 0),
	spatial.NewVector(-1, 0, 0),
	spatial.NewVector(0, -1, 0),
	spatial.NewVector(0, 0, -1),
}

// 根三角形 S0..S3、N0..N3 的顶点下标（逆时针），对应 id 8..15
var rootTriangles = [8][3]int{
	{1, 5, 2}, {2, 5, 3}, {3, 5, 4}, {4, 5, 1},
	{1, 0, 4}, {4, 0, 3}, {3, 0, 2}, {2, 0, 1},
}

func rootVertices(root int) (spatial.Vector, spatial.Vector, spatial.Vector) {
	t := rootTriangles[root]
	return baseVertices[t[0]], baseVertices[t[1]], baseVertices[t[2]]
}

// children 按中点细分：0:(v0,w2,w1) 1:(v1,w0,w2) 2:(v2,w1,w0) 3:(w0,w1,w2)
func children(v0, v1, v2 spatial.Vector) [4][3]spatial.Vector {
	w0 := v1.Mid(v2)
	w1 := v0.Mid(v2)
	w2 := v1.Mid(v0)
	return [4][3]spatial.Vector{
		{v0, w2, w1},
		{v1, w0, w2},
		{v2, w1, w0},
		{w0, w1, w2},
	}
}

// 文档注释：HTM 索引
// 背景：只保存层级；顶点按 id 即时从八面体逐层细分得到，不预建节点表。
// 约束：构造后不可变，可被多个 goroutine 并发读取。
type Index struct {
	level      int
	coarsening bool
}

// Option 索引选项
type Option func(*Index)

// WithCoarsening 部分覆盖单元的子单元大多命中时整体记为部分覆盖，减少区间数量
func WithCoarsening() Option {
	return func(x *Index) { x.coarsening = true }
}

// NewIndex 创建指定层级的索引
func NewIndex(level int, opts ...Option) (*Index, error) {
	if level < 0 || level > MaxDepth {
		return nil, fmt.Errorf("level %d (max %d): %w", level, MaxDepth, ErrDepth)
	}
	x := &Index{level: level}
	for _, o := range opts {
		o(x)
	}
	return x, nil
}

func (x *Index) Level() int { return x.level }

// LeafCount 叶子总数 8·4^level
func (x *Index) LeafCount() uint64 { return 8 << (2 * uint(x.level)) }

// IDByLeafNumber 第 n 个叶子的 id
func (x *Index) IDByLeafNumber(n uint64) (uint64, error) {
	if n >= x.LeafCount() {
		return 0, fmt.Errorf("leaf number %d: %w", n, ErrInvalidID)
	}
	return n + x.LeafCount(), nil
}

// LeafNumberByID 叶子 id 的序号；id 不在本层级时返回 ErrLevelMismatch
func (x *Index) LeafNumberByID(id uint64) (uint64, error) {
	if err := x.checkLeaf(id); err != nil {
		return 0, err
	}
	return id - x.LeafCount(), nil
}

func (x *Index) checkLeaf(id uint64) error {
	lvl, err := LevelOf(id)
	if err != nil {
		return err
	}
	if lvl != x.level {
		return fmt.Errorf("id %d at level %d, index level %d: %w", id, lvl, x.level, ErrLevelMismatch)
	}
	return nil
}

// LeafRange 任意节点 id 在本层级覆盖的叶子区间
func (x *Index) LeafRange(id uint64) (lo, hi uint64, err error) {
	lvl, err := LevelOf(id)
	if err != nil {
		return 0, 0, err
	}
	if lvl > x.level {
		return 0, 0, fmt.Errorf("id %d at level %d deeper than %d: %w", id, lvl, x.level, ErrLevelMismatch)
	}
	lo, hi = leafRange(id, x.level-lvl)
	return lo, hi, nil
}

func leafRange(id uint64, down int) (uint64, uint64) {
	shift := uint(2 * down)
	lo := id << shift
	return lo, lo + (uint64(1) << shift) - 1
}

// 文档注释：点定位
// 背景：先在八个根三角形中选中包含 v 的一个，再逐层在四个子三角形中下降。
// 约束：边界上的点按子三角形顺序取第一个命中者，结果确定；数值上四个都不命中时取最接近的子三角形。
func (x *Index) IDByPoint(v spatial.Vector) uint64 {
	root := 0
	for ; root < 8; root++ {
		a, b, c := rootVertices(root)
		if isInside(v, a, b, c) {
			break
		}
	}
	if root == 8 {
		root = 0
		best := insideRoot(v, 0)
		for r := 1; r < 8; r++ {
			if s := insideRoot(v, r); s > best {
				root, best = r, s
			}
		}
	}
	id := uint64(8 + root)
	v0, v1, v2 := rootVertices(root)
	for l := 0; l < x.level; l++ {
		ch := children(v0, v1, v2)
		k := 0
		for ; k < 4; k++ {
			if isInside(v, ch[k][0], ch[k][1], ch[k][2]) {
				break
			}
		}
		if k == 4 {
			k = 0
			best := inside(v, ch[0][0], ch[0][1], ch[0][2])
			for j := 1; j < 4; j++ {
				if s := inside(v, ch[j][0], ch[j][1], ch[j][2]); s > best {
					k, best = j, s
				}
			}
		}
		id = id<<2 | uint64(k)
		v0, v1, v2 = ch[k][0], ch[k][1], ch[k][2]
	}
	return id
}

// IDByRaDec 赤经/赤纬（度）定位
func (x *Index) IDByRaDec(ra, dec float64) uint64 {
	return x.IDByPoint(spatial.NewVectorRaDec(ra, dec))
}

func isInside(v, v0, v1, v2 spatial.Vector) bool {
	return inside(v, v0, v1, v2) >= -spatial.Epsilon
}

func insideRoot(v spatial.Vector, root int) float64 {
	a, b, c := rootVertices(root)
	return inside(v, a, b, c)
}

// inside 三条边判定量的最小值，非负即在三角形内
func inside(v, v0, v1, v2 spatial.Vector) float64 {
	return min(v0.Cross(v1).Dot(v), v1.Cross(v2).Dot(v), v2.Cross(v0).Dot(v))
}

// LevelOf id 所在层级
func LevelOf(id uint64) (int, error) {
	n := bits.Len64(id)
	if n < 4 || n%2 != 0 {
		return 0, fmt.Errorf("id %d: %w", id, ErrInvalidID)
	}
	return (n - 4) / 2, nil
}

// Contains ancestor 是否为 id 自身或其祖先
func Contains(ancestor, id uint64) bool {
	la, err := LevelOf(ancestor)
	if err != nil {
		return false
	}
	li, err := LevelOf(id)
	if err != nil || li < la {
		return false
	}
	return id>>(2*uint(li-la)) == ancestor
}

// Parent 上一层节点；根节点返回 ErrInvalidID
func Parent(id uint64) (uint64, error) {
	lvl, err := LevelOf(id)
	if err != nil {
		return 0, err
	}
	if lvl == 0 {
		return 0, fmt.Errorf("root %d has no parent: %w", id, ErrInvalidID)
	}
	return id >> 2, nil
}

// 文档注释：id 转名称
// 背景：最高两位 10 为 S、11 为 N，其后每两位一个数字 0-3。
func NameByID(id uint64) (string, error) {
	lvl, err := LevelOf(id)
	if err != nil {
		return "", err
	}
	size := lvl + 2
	var b strings.Builder
	b.Grow(size)
	if (id>>(2*uint(size)-2))&1 == 1 {
		b.WriteByte('N')
	} else {
		b.WriteByte('S')
	}
	for i := size - 2; i >= 0; i-- {
		b.WriteByte(byte('0' + (id>>(2*uint(i)))&3))
	}
	return b.String(), nil
}

// IDByName 名称转 id
func IDByName(name string) (uint64, error) {
	size := len(name)
	if size < 2 || size > MaxDepth+2 {
		return 0, fmt.Errorf("name %q length: %w", name, ErrInvalidName)
	}
	var out uint64 = 2
	switch name[0] {
	case 'N':
		out = 3
	case 'S':
	default:
		return 0, fmt.Errorf("name %q prefix: %w", name, ErrInvalidName)
	}
	for i := 1; i < size; i++ {
		c := name[i]
		if c < '0' || c > '3' {
			return 0, fmt.Errorf("name %q digit %q: %w", name, c, ErrInvalidName)
		}
		out = out<<2 | uint64(c-'0')
	}
	return out, nil
}

// Vertices 节点三角形的三个顶点（逆时针）
func Vertices(id uint64) (spatial.Vector, spatial.Vector, spatial.Vector, error) {
	lvl, err := LevelOf(id)
	if err != nil {
		return spatial.Vector{}, spatial.Vector{}, spatial.Vector{}, err
	}
	v0, v1, v2 := rootVertices(int(id>>(2*uint(lvl))) - 8)
	for i := lvl - 1; i >= 0; i-- {
		ch := children(v0, v1, v2)[(id>>(2*uint(i)))&3]
		v0, v1, v2 = ch[0], ch[1], ch[2]
	}
	return v0, v1, v2, nil
}

// PointByID 节点三角形的中心（顶点和归一化）
func PointByID(id uint64) (spatial.Vector, error) {
	v0, v1, v2, err := Vertices(id)
	if err != nil {
		return spatial.Vector{}, err
	}
	return v0.Add(v1).Add(v2).Normalize(), nil
}

func cosArcmin(arcmin float64) float64 {
	return math.Cos(math.Pi * arcmin / 10800.0)
}
