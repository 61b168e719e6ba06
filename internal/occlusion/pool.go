package occlusion

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

const ErrTypeBadRelease = "occlusion_bad_release"

// Handle names one hardware occlusion query. Zero is never handed out.
type Handle uint32

// Pool recycles query handles through a free list so steady-state frames
// allocate nothing. It is not safe for concurrent use; queries are issued
// and read back on the render thread only.
//
// The pool does not stop a caller from releasing a handle whose query is
// still in flight. Callers release only after the result was consumed.
// Releasing a handle that is already free, or was never handed out, is
// logged and ignored.
type Pool struct {
	next    Handle
	free    []Handle
	isFree  map[Handle]struct{}
	pending map[Handle]struct{}
	gauges  poolGauges
}

// NewPool creates an empty pool. name labels the pool's metrics.
func NewPool(name string) *Pool {
	return &Pool{
		next:    1,
		isFree:  make(map[Handle]struct{}),
		pending: make(map[Handle]struct{}),
		gauges:  newPoolGauges(name),
	}
}

// Allocate returns a recycled handle or a fresh one.
func (p *Pool) Allocate() Handle {
	if n := len(p.free); n > 0 {
		h := p.free[n-1]
		p.free = p.free[:n-1]
		delete(p.isFree, h)
		instrumentPool(p)
		return h
	}
	h := p.next
	p.next++
	instrumentPool(p)
	return h
}

// Release returns h to the free list and forgets its pending mark.
func (p *Pool) Release(h Handle) {
	if h == 0 {
		return
	}
	if _, free := p.isFree[h]; free || h >= p.next {
		logs.Warn(errors.New("release of a handle the pool does not lease").
			WithType(ErrTypeBadRelease).
			WithTag("handle", uint32(h)).
			WithTag("pool_size", p.Size()))
		return
	}
	delete(p.pending, h)
	p.free = append(p.free, h)
	p.isFree[h] = struct{}{}
	instrumentPool(p)
}

// MarkPending records that a query was issued on h and not read back yet.
func (p *Pool) MarkPending(h Handle) {
	p.pending[h] = struct{}{}
	instrumentPool(p)
}

// ClearPending records that the result for h was consumed while the
// handle stays leased.
func (p *Pool) ClearPending(h Handle) {
	delete(p.pending, h)
	instrumentPool(p)
}

func (p *Pool) IsPending(h Handle) bool {
	_, ok := p.pending[h]
	return ok
}

func (p *Pool) PendingCount() int { return len(p.pending) }

// Size returns how many distinct handles were ever issued.
func (p *Pool) Size() int { return int(p.next - 1) }

// Free returns how many handles wait on the free list.
func (p *Pool) Free() int { return len(p.free) }

// Leased returns how many handles are currently out of the pool.
func (p *Pool) Leased() int { return p.Size() - len(p.free) }
