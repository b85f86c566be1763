package refresh

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

type seqDedupe struct {
	mu  sync.Mutex
	lru *lru.Cache[string, uint64]
}

func newSeqDedupe(size int) *seqDedupe {
	if size <= 0 {
		size = 1024
	}
	c, _ := lru.New[string, uint64](size)
	return &seqDedupe{lru: c}
}

// returns true if seq is greater than the last applied one for dataset
func (d *seqDedupe) shouldApply(dataset string, seq uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.lru.Get(dataset); ok && seq <= last {
		return false
	}
	d.lru.Add(dataset, seq)
	return true
}
