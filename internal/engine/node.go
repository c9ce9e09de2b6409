package engine

type nodeState int

const (
	nodeInvalid nodeState = iota
	nodeComputing
	nodeValid
)

// node is one memoized computation
type node struct {
	key   string
	state nodeState
	epoch uint64

	value    any
	err      error
	hasValue bool

	// done is closed when the computation in flight finishes
	done chan struct{}

	deps       map[*node]struct{}
	dependents map[*node]struct{}
	tasks      map[*task]struct{}
}

func (e *Engine) nodeLocked(key string) *node {
	n, ok := e.nodes[key]
	if !ok {
		n = &node{
			key:        key,
			deps:       make(map[*node]struct{}),
			dependents: make(map[*node]struct{}),
			tasks:      make(map[*task]struct{}),
		}
		e.nodes[key] = n
	}
	return n
}

// trackLocked records that the owner of c read n
func (e *Engine) trackLocked(c *Context, n *node) {
	switch {
	case c.node != nil:
		c.node.deps[n] = struct{}{}
		n.dependents[c.node] = struct{}{}
	case c.task != nil:
		c.task.deps[n] = struct{}{}
		n.tasks[c.task] = struct{}{}
	}
}

func (e *Engine) clearDepsLocked(n *node) {
	for d := range n.deps {
		delete(d.dependents, n)
	}
	n.deps = make(map[*node]struct{})
}

func (e *Engine) invalidateLocked(n *node, seen map[*node]struct{}) {
	if _, ok := seen[n]; ok {
		return
	}
	seen[n] = struct{}{}

	n.epoch++
	if n.state == nodeValid {
		n.state = nodeInvalid
	}
	for d := range n.dependents {
		e.invalidateLocked(d, seen)
	}
	for t := range n.tasks {
		e.restartLocked(t)
	}
}
