package protocol

// decodeContext holds integer scalars and flattened integer arrays decoded so
// far in one bank. Float values are never referenced as sizes, so they are not
// recorded here.
type decodeContext struct {
	scalars map[string]int64
	arrays  map[string][]int64
}

func newDecodeContext() *decodeContext {
	return &decodeContext{
		scalars: make(map[string]int64),
		arrays:  make(map[string][]int64),
	}
}

func (c *decodeContext) scalar(name string) (int64, bool) {
	v, ok := c.scalars[name]
	return v, ok
}

func (c *decodeContext) array(name string) ([]int64, bool) {
	v, ok := c.arrays[name]
	return v, ok
}
