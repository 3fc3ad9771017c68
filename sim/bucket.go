// Implements CallBucket, the insertion-ordered id -> Call mapping that holds
// every call in one lifecycle state.

package sim

import (
	"container/list"
	"fmt"
	"strings"
)

// CallBucket keeps calls in the order they entered the bucket. Lookups and
// removals by id are O(1); PopOldest gives FIFO order for the queue.
type CallBucket struct {
	order *list.List
	index map[string]*list.Element
}

// NewCallBucket returns an empty bucket.
func NewCallBucket() *CallBucket {
	return &CallBucket{order: list.New(), index: make(map[string]*list.Element)}
}

// Add appends a call to the back of the bucket. Adding an id that is already
// present panics: a call lives in exactly one place.
func (b *CallBucket) Add(c *Call) {
	if _, ok := b.index[c.ID()]; ok {
		panic(fmt.Sprintf("CallBucket.Add: duplicate call id %q", c.ID()))
	}
	b.index[c.ID()] = b.order.PushBack(c)
}

// Remove deletes the call with the given id and returns it.
func (b *CallBucket) Remove(id string) (*Call, bool) {
	el, ok := b.index[id]
	if !ok {
		return nil, false
	}
	delete(b.index, id)
	return b.order.Remove(el).(*Call), true
}

// Get returns the call with the given id without removing it.
func (b *CallBucket) Get(id string) (*Call, bool) {
	el, ok := b.index[id]
	if !ok {
		return nil, false
	}
	return el.Value.(*Call), true
}

// Contains reports whether the bucket holds the given id.
func (b *CallBucket) Contains(id string) bool {
	_, ok := b.index[id]
	return ok
}

// PopOldest removes and returns the call that entered the bucket first.
func (b *CallBucket) PopOldest() (*Call, bool) {
	front := b.order.Front()
	if front == nil {
		return nil, false
	}
	c := b.order.Remove(front).(*Call)
	delete(b.index, c.ID())
	return c, true
}

// Len returns the number of calls in the bucket.
func (b *CallBucket) Len() int {
	return b.order.Len()
}

// IDs returns a snapshot of the ids in insertion order. The engine scans this
// snapshot so that calls moving between buckets mid-tick are not rescanned.
func (b *CallBucket) IDs() []string {
	ids := make([]string, 0, b.order.Len())
	for el := b.order.Front(); el != nil; el = el.Next() {
		ids = append(ids, el.Value.(*Call).ID())
	}
	return ids
}

// Calls returns the calls in insertion order.
func (b *CallBucket) Calls() []*Call {
	calls := make([]*Call, 0, b.order.Len())
	for el := b.order.Front(); el != nil; el = el.Next() {
		calls = append(calls, el.Value.(*Call))
	}
	return calls
}

func (b *CallBucket) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for el := b.order.Front(); el != nil; el = el.Next() {
		sb.WriteString(el.Value.(*Call).ID())
		if el.Next() != nil {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
