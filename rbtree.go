package purc

// Intrusive red-black tree keyed by set entries. The tree stores no
// comparator; lookup and insert take one so the keyed set can compare
// by its key tuple.

type rbNode struct {
	parent *rbNode
	left   *rbNode
	right  *rbNode
	red    bool
	entry  *setEntry
}

type rbTree struct {
	root *rbNode
}

// first returns the smallest node, or nil on an empty tree.
func (t *rbTree) first() *rbNode {
	n := t.root
	if n == nil {
		return nil
	}
	for n.left != nil {
		n = n.left
	}
	return n
}

// last returns the largest node, or nil on an empty tree.
func (t *rbTree) last() *rbNode {
	n := t.root
	if n == nil {
		return nil
	}
	for n.right != nil {
		n = n.right
	}
	return n
}

// rbNext returns the in-order successor of n, or nil.
func rbNext(n *rbNode) *rbNode {
	if n.right != nil {
		n = n.right
		for n.left != nil {
			n = n.left
		}
		return n
	}
	for n.parent != nil && n == n.parent.right {
		n = n.parent
	}
	return n.parent
}

// rbPrev returns the in-order predecessor of n, or nil.
func rbPrev(n *rbNode) *rbNode {
	if n.left != nil {
		n = n.left
		for n.right != nil {
			n = n.right
		}
		return n
	}
	for n.parent != nil && n == n.parent.left {
		n = n.parent
	}
	return n.parent
}

// find returns the node whose entry compares equal to e under cmp, or
// nil.
func (t *rbTree) find(e *setEntry, cmp func(a, b *setEntry) int) *rbNode {
	n := t.root
	for n != nil {
		d := cmp(e, n.entry)
		switch {
		case d < 0:
			n = n.left
		case d > 0:
			n = n.right
		default:
			return n
		}
	}
	return nil
}

// insert adds a node for e unless an equal entry already exists. It
// returns the new node and true, or the existing node and false.
func (t *rbTree) insert(e *setEntry, cmp func(a, b *setEntry) int) (*rbNode, bool) {
	var parent *rbNode
	link := &t.root
	for *link != nil {
		parent = *link
		d := cmp(e, parent.entry)
		switch {
		case d < 0:
			link = &parent.left
		case d > 0:
			link = &parent.right
		default:
			return parent, false
		}
	}

	n := &rbNode{parent: parent, red: true, entry: e}
	*link = n
	t.insertFixup(n)
	return n, true
}

func (t *rbTree) rotateLeft(x *rbNode) {
	y := x.right
	x.right = y.left
	if y.left != nil {
		y.left.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == nil:
		t.root = y
	case x == x.parent.left:
		x.parent.left = y
	default:
		x.parent.right = y
	}
	y.left = x
	x.parent = y
}

func (t *rbTree) rotateRight(x *rbNode) {
	y := x.left
	x.left = y.right
	if y.right != nil {
		y.right.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == nil:
		t.root = y
	case x == x.parent.right:
		x.parent.right = y
	default:
		x.parent.left = y
	}
	y.right = x
	x.parent = y
}

func (t *rbTree) insertFixup(n *rbNode) {
	for n.parent != nil && n.parent.red {
		grand := n.parent.parent
		if n.parent == grand.left {
			uncle := grand.right
			if uncle != nil && uncle.red {
				n.parent.red = false
				uncle.red = false
				grand.red = true
				n = grand
				continue
			}
			if n == n.parent.right {
				n = n.parent
				t.rotateLeft(n)
			}
			n.parent.red = false
			grand.red = true
			t.rotateRight(grand)
		} else {
			uncle := grand.left
			if uncle != nil && uncle.red {
				n.parent.red = false
				uncle.red = false
				grand.red = true
				n = grand
				continue
			}
			if n == n.parent.left {
				n = n.parent
				t.rotateRight(n)
			}
			n.parent.red = false
			grand.red = true
			t.rotateLeft(grand)
		}
	}
	t.root.red = false
}

// erase unlinks n from the tree and rebalances. Other nodes keep their
// entries, so node pointers cached by iterators stay valid.
func (t *rbTree) erase(n *rbNode) {
	var child, parent *rbNode
	red := n.red

	switch {
	case n.left == nil || n.right == nil:
		child = n.left
		if child == nil {
			child = n.right
		}
		parent = n.parent
		if child != nil {
			child.parent = parent
		}
		t.replaceChild(n, child)

	default:
		// Two children: the in-order successor takes n's place in the
		// tree, keeping its own entry.
		succ := n.right
		for succ.left != nil {
			succ = succ.left
		}
		red = succ.red
		child = succ.right

		if succ.parent == n {
			parent = succ
		} else {
			parent = succ.parent
			if child != nil {
				child.parent = parent
			}
			parent.left = child
			succ.right = n.right
			n.right.parent = succ
		}
		succ.left = n.left
		n.left.parent = succ
		succ.parent = n.parent
		succ.red = n.red
		t.replaceChild(n, succ)
	}

	if !red {
		t.eraseFixup(child, parent)
	}
	n.parent, n.left, n.right, n.entry = nil, nil, nil, nil
}

// replaceChild points n's parent (or the root) at repl instead of n.
func (t *rbTree) replaceChild(n, repl *rbNode) {
	switch {
	case n.parent == nil:
		t.root = repl
	case n == n.parent.left:
		n.parent.left = repl
	default:
		n.parent.right = repl
	}
}

func isRed(n *rbNode) bool { return n != nil && n.red }

func (t *rbTree) eraseFixup(n *rbNode, parent *rbNode) {
	for n != t.root && !isRed(n) {
		if parent == nil {
			break
		}
		if n == parent.left {
			sib := parent.right
			if isRed(sib) {
				sib.red = false
				parent.red = true
				t.rotateLeft(parent)
				sib = parent.right
			}
			if !isRed(sib.left) && !isRed(sib.right) {
				sib.red = true
				n = parent
				parent = n.parent
				continue
			}
			if !isRed(sib.right) {
				sib.left.red = false
				sib.red = true
				t.rotateRight(sib)
				sib = parent.right
			}
			sib.red = parent.red
			parent.red = false
			sib.right.red = false
			t.rotateLeft(parent)
			n = t.root
			break
		}

		sib := parent.left
		if isRed(sib) {
			sib.red = false
			parent.red = true
			t.rotateRight(parent)
			sib = parent.left
		}
		if !isRed(sib.left) && !isRed(sib.right) {
			sib.red = true
			n = parent
			parent = n.parent
			continue
		}
		if !isRed(sib.left) {
			sib.right.red = false
			sib.red = true
			t.rotateLeft(sib)
			sib = parent.left
		}
		sib.red = parent.red
		parent.red = false
		sib.left.red = false
		t.rotateRight(parent)
		n = t.root
		break
	}
	if n != nil {
		n.red = false
	}
}
