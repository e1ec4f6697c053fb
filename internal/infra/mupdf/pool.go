package mupdf

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"pdf2image/internal/config"
	"pdf2image/internal/infra/logging"
)

// Pool bounds the number of concurrent MuPDF renders. Page rasterisation
// holds a C-side buffer per render, so capacity doubles as a memory ceiling.
type Pool struct {
	cfg config.Config

	mu          sync.Mutex
	sem         chan struct{}
	closed      bool
	restarts    int
	lastRestart time.Time
}

// Slot is a claimed render slot. It must be returned with Release.
type Slot struct{}

// Stats is a snapshot of pool state for the stats endpoint.
type Stats struct {
	Enabled      bool      `json:"enabled"`
	Capacity     int       `json:"capacity"`
	Idle         int       `json:"idle"`
	InUse        int       `json:"in_use"`
	PoolSizeConf int       `json:"pool_size_conf"`
	Restarts     int       `json:"restarts"`
	LastRestart  time.Time `json:"last_restart"`
}

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("render pool closed")

// NewPool creates a pool with cfg.Render.PoolSize slots.
func NewPool(cfg config.Config) (*Pool, error) {
	size := cfg.Render.PoolSize
	if size <= 0 {
		return nil, errors.New("render pool disabled")
	}
	sem := make(chan struct{}, size)
	for i := 0; i < size; i++ {
		sem <- struct{}{}
	}
	return &Pool{cfg: cfg, sem: sem}, nil
}

// Acquire claims a render slot, waiting until one is free or the context ends.
func (p *Pool) Acquire(ctx context.Context) (*Slot, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	sem := p.sem
	p.mu.Unlock()

	select {
	case <-sem:
		return &Slot{}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a slot to the pool. A non-nil render error is logged but
// does not shrink capacity; MuPDF keeps no per-slot state to poison.
func (p *Pool) Release(s *Slot, renderErr error) {
	if s == nil {
		return
	}
	if renderErr != nil {
		logging.Warn("render slot released with error", "error", renderErr.Error())
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.sem <- struct{}{}:
	default:
	}
}

// Restart replaces the semaphore, recovering capacity lost to wedged renders.
func (p *Pool) Restart() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	size := cap(p.sem)
	if size == 0 {
		size = p.cfg.Render.PoolSize
	}
	sem := make(chan struct{}, size)
	for i := 0; i < size; i++ {
		sem <- struct{}{}
	}
	p.sem = sem
	p.restarts++
	p.lastRestart = time.Now()
	logging.Warn("render pool restarted", "capacity", size, "restarts", p.restarts)
	return nil
}

// Close shuts the pool down. Idempotent.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

// Stats reports current pool occupancy.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return Stats{PoolSizeConf: p.cfg.Render.PoolSize, Restarts: p.restarts, LastRestart: p.lastRestart}
	}
	idle := len(p.sem)
	capacity := cap(p.sem)
	return Stats{
		Enabled:      true,
		Capacity:     capacity,
		Idle:         idle,
		InUse:        capacity - idle,
		PoolSizeConf: p.cfg.Render.PoolSize,
		Restarts:     p.restarts,
		LastRestart:  p.lastRestart,
	}
}

// IsRenderInterrupted reports whether the error looks like a cancelled or
// wedged render rather than a bad input document.
func IsRenderInterrupted(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrPoolClosed) {
		return true
	}
	return strings.Contains(err.Error(), "closed")
}
