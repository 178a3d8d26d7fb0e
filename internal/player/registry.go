package player

import "sync"

// Registry lets at most one of its players play at a time.
type Registry struct {
	mu     sync.Mutex
	active *Player
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Active returns the player currently playing, or nil.
func (r *Registry) Active() *Player {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func (r *Registry) activate(p *Player) {
	if r == nil {
		return
	}
	r.mu.Lock()
	prev := r.active
	r.active = p
	r.mu.Unlock()
	if prev != nil && prev != p {
		prev.Stop()
	}
}

func (r *Registry) release(p *Player) {
	if r == nil {
		return
	}
	r.mu.Lock()
	if r.active == p {
		r.active = nil
	}
	r.mu.Unlock()
}
