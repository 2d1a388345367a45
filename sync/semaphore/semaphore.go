// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package semaphore provides named counting semaphores. They bound
// the process-wide cost of parallel work, such as toolchain probes
// spawning child processes, and expose usage counters.
package semaphore

import (
	"context"
	"sync"
	"sync/atomic"
)

var (
	mu         sync.Mutex
	semaphores = map[string]*Semaphore{}
)

// Semaphore bounds concurrent use of a resource. A held slot is a
// token in the channel.
type Semaphore struct {
	name string
	ch   chan struct{}

	waits atomic.Int64
	reqs  atomic.Int64
}

// Lookup returns the semaphore registered under name, or nil.
func Lookup(name string) *Semaphore {
	mu.Lock()
	defer mu.Unlock()
	return semaphores[name]
}

// New creates a semaphore with capacity n and registers it under
// name. A later New with the same name replaces the registration.
func New(name string, n int) *Semaphore {
	s := &Semaphore{
		name: name,
		ch:   make(chan struct{}, n),
	}
	mu.Lock()
	semaphores[name] = s
	mu.Unlock()
	return s
}

// WaitAcquire acquires a slot, blocking while the semaphore is full.
// It returns the context to run under and the release func. The
// release func must be called even when WaitAcquire returns an error.
func (s *Semaphore) WaitAcquire(ctx context.Context) (context.Context, func(), error) {
	s.waits.Add(1)
	defer s.waits.Add(-1)
	select {
	case s.ch <- struct{}{}:
		s.reqs.Add(1)
		return ctx, func() { <-s.ch }, nil
	case <-ctx.Done():
		return ctx, func() {}, context.Cause(ctx)
	}
}

// Name returns the registered name.
func (s *Semaphore) Name() string {
	return s.name
}

// Capacity returns the number of slots.
func (s *Semaphore) Capacity() int {
	if s == nil {
		return 0
	}
	return cap(s.ch)
}

// NumServs returns the number of slots currently held.
func (s *Semaphore) NumServs() int {
	return len(s.ch)
}

// NumWaits returns the number of callers blocked in WaitAcquire.
func (s *Semaphore) NumWaits() int {
	return int(s.waits.Load())
}

// NumRequests returns the total number of successful acquisitions.
func (s *Semaphore) NumRequests() int {
	return int(s.reqs.Load())
}

// Do runs f under the semaphore.
func (s *Semaphore) Do(ctx context.Context, f func(ctx context.Context) error) error {
	ctx, done, err := s.WaitAcquire(ctx)
	if err != nil {
		return err
	}
	defer done()
	return f(ctx)
}
