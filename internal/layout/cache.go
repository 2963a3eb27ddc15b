package layout

import "cffi/internal/ctype"

type cache struct {
	byType map[ctype.TypeID]TypeLayout
}

func newCache() *cache {
	return &cache{byType: make(map[ctype.TypeID]TypeLayout, 64)}
}

func (c *cache) get(id ctype.TypeID) (TypeLayout, bool) {
	if c == nil {
		return TypeLayout{}, false
	}
	l, ok := c.byType[id]
	return l, ok
}

func (c *cache) put(id ctype.TypeID, l TypeLayout) {
	if c == nil {
		return
	}
	c.byType[id] = l
}
