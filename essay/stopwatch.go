package essay

import (
	"fmt"
	"sync"
)

// Stopwatch accumulates whole seconds while running. The owner drives it by
// calling Tick once per second.
type Stopwatch struct {
	mu      sync.Mutex
	seconds int
	running bool
}

func (s *Stopwatch) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
}

func (s *Stopwatch) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

// Reset stops the watch and zeroes it.
func (s *Stopwatch) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.seconds = 0
}

// Tick adds one second if the watch is running.
func (s *Stopwatch) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.seconds++
	}
}

func (s *Stopwatch) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Stopwatch) Seconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seconds
}

func (s *Stopwatch) String() string {
	return FormatSeconds(s.Seconds())
}

// FormatSeconds renders n as "<minutes>m <seconds>s".
func FormatSeconds(n int) string {
	if n < 0 {
		n = 0
	}
	return fmt.Sprintf("%dm %ds", n/60, n%60)
}
