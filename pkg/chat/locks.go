package chat

import "sync"

// lockPool hands out one mutex per thread id. Contention is low (two-party
// chat, low write rate) so entries are kept for the process lifetime.
type lockPool struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (p *lockPool) get(id string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.m == nil {
		p.m = make(map[string]*sync.Mutex)
	}
	if l, ok := p.m[id]; ok {
		return l
	}
	l := &sync.Mutex{}
	p.m[id] = l
	return l
}
