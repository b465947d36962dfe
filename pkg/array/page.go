// pkg/array/page.go

package array

import (
	"runtime"
	"sync/atomic"

	"SeqStore/pkg/utils"
)

var logger = utils.GetLogger("seqstore")

// Page is one fixed-size slab of a chunked array.
type Page struct {
	refs   int32
	pooled bool
	Data   []byte
}

// NewPage wraps data in a page with a single reference.
func NewPage(data []byte) *Page {
	return &Page{refs: 1, Data: data}
}

// NewPooledPage allocates a zeroed page from the shared buffer pools.
func NewPooledPage(size int) *Page {
	if size <= 0 {
		panic("size of page should > 0")
	}
	p := utils.Alloc(size)
	page := &Page{refs: 1, pooled: true, Data: p}
	runtime.SetFinalizer(page, func(p *Page) {
		refCnt := atomic.LoadInt32(&p.refs)
		if refCnt != 0 {
			logger.Errorf("refcount of page %p is not zero: %d", p, refCnt)
			if refCnt > 0 {
				p.Release()
			}
		}
	})
	return page
}

// Acquire increase the refcount
func (p *Page) Acquire() {
	atomic.AddInt32(&p.refs, 1)
}

// Release decreases the refcount
func (p *Page) Release() {
	if atomic.AddInt32(&p.refs, -1) == 0 {
		if p.pooled {
			utils.Free(p.Data)
		}
		p.Data = nil
	}
}
