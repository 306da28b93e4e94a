package blockchain

import "sync"

// TrackedSupply counts minted coins as coinbase rewards are applied, read by
// the reward schedule to enforce the emission cap.
type TrackedSupply struct {
	mu     sync.Mutex
	minted float64
}

// NewTrackedSupply creates a supply tracker with an initial minted amount.
func NewTrackedSupply(initial float64) *TrackedSupply {
	return &TrackedSupply{minted: initial}
}

// Mint records newly minted coins.
func (s *TrackedSupply) Mint(amount float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.minted += amount
}

// CirculatingSupply returns the total minted so far.
func (s *TrackedSupply) CirculatingSupply() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.minted
}
