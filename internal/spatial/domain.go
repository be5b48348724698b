package spatial

// Domain 凸区域的并集
type Domain struct {
	convexes []*Convex
}

func NewDomain(cs ...*Convex) *Domain {
	d := &Domain{}
	for _, c := range cs {
		d.Add(c)
	}
	return d
}

func (d *Domain) Add(c *Convex) {
	if c != nil {
		d.convexes = append(d.convexes, c)
	}
}

func (d *Domain) Convexes() []*Convex { return d.convexes }

func (d *Domain) Len() int { return len(d.convexes) }

// Simplify 逐个化简，并去掉判定为空的凸区域
func (d *Domain) Simplify() {
	kept := d.convexes[:0]
	for _, c := range d.convexes {
		c.Simplify()
		if !c.Empty() {
			kept = append(kept, c)
		}
	}
	d.convexes = kept
}

// Contains 任一凸区域包含即可
func (d *Domain) Contains(v Vector) bool {
	for _, c := range d.convexes {
		if c.Contains(v) {
			return true
		}
	}
	return false
}
