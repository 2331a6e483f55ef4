package mqtt

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/mikey-austin/shoko_nav/pkg/nav"
)

// pendingReplies maps in-flight command ids to the channel awaiting the reply.
type pendingReplies struct {
	mu      sync.Mutex
	waiters map[string]chan nav.ReplyEnvelope
}

func newPendingReplies() *pendingReplies {
	return &pendingReplies{waiters: map[string]chan nav.ReplyEnvelope{}}
}

func (p *pendingReplies) register(id string) <-chan nav.ReplyEnvelope {
	ch := make(chan nav.ReplyEnvelope, 1)
	p.mu.Lock()
	p.waiters[id] = ch
	p.mu.Unlock()
	return ch
}

func (p *pendingReplies) drop(id string) {
	p.mu.Lock()
	delete(p.waiters, id)
	p.mu.Unlock()
}

// resolve hands reply to its waiter. Replies nobody waits for, and
// duplicates of one already delivered, are discarded.
func (p *pendingReplies) resolve(reply nav.ReplyEnvelope) bool {
	p.mu.Lock()
	ch, ok := p.waiters[reply.ID]
	p.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- reply:
		return true
	default:
		return false
	}
}

func (p *pendingReplies) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.waiters)
}

// presenceSet keeps the latest presence per node.
type presenceSet struct {
	mu    sync.Mutex
	nodes map[string]nav.Presence
}

func newPresenceSet() *presenceSet {
	return &presenceSet{nodes: map[string]nav.Presence{}}
}

func (s *presenceSet) add(payload []byte) {
	var presence nav.Presence
	if err := json.Unmarshal(payload, &presence); err != nil || presence.NodeID == "" {
		return
	}
	s.mu.Lock()
	s.nodes[presence.NodeID] = presence
	s.mu.Unlock()
}

func (s *presenceSet) list() []nav.Presence {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]nav.Presence, 0, len(s.nodes))
	for _, presence := range s.nodes {
		out = append(out, presence)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out
}
