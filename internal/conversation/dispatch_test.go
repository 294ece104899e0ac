package conversation

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSerial_PreservesOrderPerKey(t *testing.T) {
	s := NewSerial()

	var (
		mu  sync.Mutex
		got = map[int64][]int{}
	)
	for i := 0; i < 100; i++ {
		for _, key := range []int64{1, 2, 3} {
			i, key := i, key
			s.Submit(key, func() {
				mu.Lock()
				got[key] = append(got[key], i)
				mu.Unlock()
			})
		}
	}
	s.Wait()

	for _, key := range []int64{1, 2, 3} {
		assert.Len(t, got[key], 100)
		for i, v := range got[key] {
			assert.Equal(t, i, v)
		}
	}
}

func TestSerial_KeysDoNotBlockEachOther(t *testing.T) {
	s := NewSerial()
	release := make(chan struct{})
	done := make(chan struct{})

	s.Submit(1, func() { <-release })
	s.Submit(2, func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("key 2 was blocked by key 1")
	}
	close(release)
	s.Wait()
}
