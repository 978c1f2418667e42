package cache

// lruNode is one entry of the recency list. It carries the key so an
// evicted node can be removed from the index.
type lruNode[K comparable] struct {
	key   K
	value []byte
	prev  *lruNode[K]
	next  *lruNode[K]
}

// lruList is a doubly-linked recency list: head is the most recently
// used entry, tail the least. It is not safe for concurrent use.
type lruList[K comparable] struct {
	head *lruNode[K]
	tail *lruNode[K]
	len  int
}

// PushFront inserts a new most recently used node.
func (l *lruList[K]) PushFront(key K, value []byte) *lruNode[K] {
	node := &lruNode[K]{key: key, value: value}
	l.linkFront(node)
	return node
}

// MoveToFront marks an existing node most recently used.
func (l *lruList[K]) MoveToFront(node *lruNode[K]) {
	if node == l.head {
		return
	}
	l.unlink(node)
	l.linkFront(node)
}

// RemoveOldest unlinks and returns the least recently used node, or nil.
func (l *lruList[K]) RemoveOldest() *lruNode[K] {
	node := l.tail
	if node != nil {
		l.unlink(node)
	}
	return node
}

func (l *lruList[K]) linkFront(node *lruNode[K]) {
	node.prev = nil
	node.next = l.head
	if l.head != nil {
		l.head.prev = node
	}
	l.head = node
	if l.tail == nil {
		l.tail = node
	}
	l.len++
}

func (l *lruList[K]) unlink(node *lruNode[K]) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}
	node.prev = nil
	node.next = nil
	l.len--
}
