package conversation

import "sync"

// Serial runs submitted work in FIFO order per key while different keys run
// in parallel. A key's worker goroutine exits once its queue drains.
type Serial struct {
	mu     sync.Mutex
	queues map[int64][]func()
	wg     sync.WaitGroup
}

// NewSerial creates an idle Serial.
func NewSerial() *Serial {
	return &Serial{queues: make(map[int64][]func())}
}

// Submit queues fn behind earlier work for key.
func (s *Serial) Submit(key int64, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, running := s.queues[key]
	s.queues[key] = append(q, fn)
	if !running {
		s.wg.Add(1)
		go s.drain(key)
	}
}

// Wait blocks until every queued function has run.
func (s *Serial) Wait() { s.wg.Wait() }

func (s *Serial) drain(key int64) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		q := s.queues[key]
		if len(q) == 0 {
			delete(s.queues, key)
			s.mu.Unlock()
			return
		}
		fn := q[0]
		s.queues[key] = q[1:]
		s.mu.Unlock()

		fn()
	}
}
