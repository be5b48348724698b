// 包 skiplist：uint64 有序集合，节点存放在切片 arena 中，按下标互相引用
package skiplist

import (
	"math"
	"math/rand"
)

const (
	maxHeight  = 9
	sentinelID = nodeID(0)
)

type nodeID uint32

type tower [maxHeight + 1]nodeID

type node struct {
	key    uint64
	id     nodeID
	next   tower
	prev   nodeID
	height uint8
}

// 文档注释：跳表
// 背景：节点 0 为哨兵，视为 +∞；删除的槽位进入 free 链表复用，arena 不会无限增长。
// 约束：随机源归每个实例所有，不与其它实例或全局状态共享；非并发安全。
type List struct {
	nodes []node
	free  []nodeID
	count int
	rnd   *rand.Rand
}

// New 以随机种子创建
func New() *List {
	return NewWithSeed(rand.Int63())
}

// NewWithSeed 以固定种子创建，塔高序列可复现
func NewWithSeed(seed int64) *List {
	l := &List{
		nodes: make([]node, 1, 8),
		rnd:   rand.New(rand.NewSource(seed)),
	}
	l.nodes[0] = node{id: sentinelID, height: maxHeight, prev: sentinelID}
	return l
}

func (l *List) Len() int { return l.count }

// Clear 删除全部键
func (l *List) Clear() {
	l.nodes = l.nodes[:1]
	l.free = l.free[:0]
	l.nodes[0].next = tower{}
	l.nodes[0].prev = sentinelID
	l.count = 0
}

func (l *List) Has(key uint64) bool {
	n := l.nodes[l.pathBefore(key)[0]].next[0]
	return n != sentinelID && l.nodes[n].key == key
}

// Insert 插入键；已存在时返回 false
func (l *List) Insert(key uint64) bool {
	path := l.pathBefore(key)
	if n := l.nodes[path[0]].next[0]; n != sentinelID && l.nodes[n].key == key {
		return false
	}

	nd := node{key: key, id: l.alloc(), height: l.rollHeight()}
	for h := uint8(0); h <= nd.height; h++ {
		p := &l.nodes[path[h]]
		nd.next[h] = p.next[h]
		p.next[h] = nd.id
	}
	succ := &l.nodes[nd.next[0]]
	nd.prev = succ.prev
	succ.prev = nd.id
	l.nodes[nd.id] = nd
	l.count++
	return true
}

// Delete 删除键；不存在时返回 false
func (l *List) Delete(key uint64) bool {
	path := l.pathBefore(key)
	id := l.nodes[path[0]].next[0]
	if id == sentinelID || l.nodes[id].key != key {
		return false
	}
	nd := l.nodes[id]
	for h := uint8(0); h <= nd.height; h++ {
		p := &l.nodes[path[h]]
		if p.next[h] == id {
			p.next[h] = nd.next[h]
		}
	}
	l.nodes[nd.next[0]].prev = nd.prev
	l.nodes[id] = node{id: id}
	l.free = append(l.free, id)
	l.count--
	return true
}

// FindMax 不大于 x 的最大键
func (l *List) FindMax(x uint64) (uint64, bool) {
	id := l.pathTo(x)[0]
	if id == sentinelID {
		return 0, false
	}
	return l.nodes[id].key, true
}

// FindMin 不小于 x 的最小键
func (l *List) FindMin(x uint64) (uint64, bool) {
	id := l.nodes[l.pathBefore(x)[0]].next[0]
	if id == sentinelID {
		return 0, false
	}
	return l.nodes[id].key, true
}

// FreeRange 删除严格位于 (lo, hi) 之间的键，返回删除个数
func (l *List) FreeRange(lo, hi uint64) int {
	if hi <= lo+1 || lo == math.MaxUint64 {
		return 0
	}
	var doomed []uint64
	for it := l.IterAt(lo + 1); it.Valid() && it.Key() < hi; it.Next() {
		doomed = append(doomed, it.Key())
	}
	for _, k := range doomed {
		l.Delete(k)
	}
	return len(doomed)
}

// Min 最小键
func (l *List) Min() (uint64, bool) {
	id := l.nodes[0].next[0]
	if id == sentinelID {
		return 0, false
	}
	return l.nodes[id].key, true
}

// Max 最大键
func (l *List) Max() (uint64, bool) {
	id := l.nodes[0].prev
	if id == sentinelID {
		return 0, false
	}
	return l.nodes[id].key, true
}

// Keys 按升序返回全部键
func (l *List) Keys() []uint64 {
	out := make([]uint64, 0, l.count)
	for it := l.IterAtStart(); it.Valid(); it.Next() {
		out = append(out, it.Key())
	}
	return out
}

// Iter 升序游标；对列表的修改会使游标失效
type Iter struct {
	list *List
	curr nodeID
}

func (l *List) IterAtStart() *Iter {
	return &Iter{list: l, curr: l.nodes[0].next[0]}
}

// IterAt 定位到不小于 key 的第一个键
func (l *List) IterAt(key uint64) *Iter {
	return &Iter{list: l, curr: l.nodes[l.pathBefore(key)[0]].next[0]}
}

func (it *Iter) Valid() bool { return it.curr != sentinelID }

func (it *Iter) Key() uint64 { return it.list.nodes[it.curr].key }

func (it *Iter) Next() {
	if it.curr != sentinelID {
		it.curr = it.list.nodes[it.curr].next[0]
	}
}

// pathBefore 每层最后一个键小于 key 的节点
func (l *List) pathBefore(key uint64) (path tower) {
	prev := sentinelID
	for lvl := maxHeight; lvl >= 0; {
		nxt := l.nodes[prev].next[lvl]
		if nxt == sentinelID || key <= l.nodes[nxt].key {
			path[lvl] = prev
			lvl--
			continue
		}
		prev = nxt
	}
	return
}

// pathTo 每层最后一个键不大于 key 的节点
func (l *List) pathTo(key uint64) (path tower) {
	prev := sentinelID
	for lvl := maxHeight; lvl >= 0; {
		nxt := l.nodes[prev].next[lvl]
		if nxt == sentinelID || key < l.nodes[nxt].key {
			path[lvl] = prev
			lvl--
			continue
		}
		prev = nxt
	}
	return
}

func (l *List) alloc() nodeID {
	if n := len(l.free); n > 0 {
		id := l.free[n-1]
		l.free = l.free[:n-1]
		return id
	}
	l.nodes = append(l.nodes, node{})
	return nodeID(len(l.nodes) - 1)
}

var probabilities = [maxHeight]uint32{}

func init() {
	// 各层概率按 1/e 递减
	p := 1.0
	for i := 0; i < maxHeight; i++ {
		p /= math.E
		probabilities[i] = uint32(float64(math.MaxUint32) * p)
	}
}

func (l *List) rollHeight() (h uint8) {
	rnd := l.rnd.Uint32()
	for h < maxHeight && rnd <= probabilities[h] {
		h++
	}
	return
}
