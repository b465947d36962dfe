// pkg/array/bytes.go

package array

// DirectBytes is a ByteArray backed by one slice.
type DirectBytes struct {
	data []byte
}

func NewDirectBytes(length int64) *DirectBytes {
	checkLength(length)
	return &DirectBytes{data: make([]byte, length)}
}

func (a *DirectBytes) Length() int64       { return int64(len(a.data)) }
func (a *DirectBytes) Get(i int64) byte    { return a.data[i] }
func (a *DirectBytes) Set(i int64, v byte) { a.data[i] = v }

func (a *DirectBytes) Swap(i, j int64) {
	a.data[i], a.data[j] = a.data[j], a.data[i]
}

func (a *DirectBytes) CopyIn(off int64, src []byte) {
	copy(a.data[off:off+int64(len(src))], src)
}

func (a *DirectBytes) CopyOut(off int64, dst []byte) {
	copy(dst, a.data[off:off+int64(len(dst))])
}

func (a *DirectBytes) Extend(n int64) int64 {
	checkLength(n)
	old := int64(len(a.data))
	a.data = append(a.data, make([]byte, n)...)
	return old
}

// Bytes exposes the backing slice.
func (a *DirectBytes) Bytes() []byte { return a.data }

func (a *DirectBytes) Release() { a.data = nil }

// ChunkedBytes is a ByteArray split across pooled pages of 1<<bits bytes.
type ChunkedBytes struct {
	bits   uint
	size   int64
	mask   int64
	length int64
	pages  []*Page
}

func NewChunkedBytes(length int64, bits uint) *ChunkedBytes {
	checkLength(length)
	if bits > 30 {
		panic("page bits out of range")
	}
	a := &ChunkedBytes{bits: bits, size: 1 << bits, mask: 1<<bits - 1}
	a.Extend(length)
	return a
}

func (a *ChunkedBytes) Length() int64 { return a.length }

// Pages reports the number of allocated pages.
func (a *ChunkedBytes) Pages() int { return len(a.pages) }

func (a *ChunkedBytes) Get(i int64) byte {
	return a.pages[i>>a.bits].Data[i&a.mask]
}

func (a *ChunkedBytes) Set(i int64, v byte) {
	a.pages[i>>a.bits].Data[i&a.mask] = v
}

func (a *ChunkedBytes) Swap(i, j int64) {
	pi, oi := a.pages[i>>a.bits], i&a.mask
	pj, oj := a.pages[j>>a.bits], j&a.mask
	pi.Data[oi], pj.Data[oj] = pj.Data[oj], pi.Data[oi]
}

func (a *ChunkedBytes) CopyIn(off int64, src []byte) {
	for len(src) > 0 {
		p := a.pages[off>>a.bits]
		n := copy(p.Data[off&a.mask:], src)
		src = src[n:]
		off += int64(n)
	}
}

func (a *ChunkedBytes) CopyOut(off int64, dst []byte) {
	for len(dst) > 0 {
		p := a.pages[off>>a.bits]
		n := copy(dst, p.Data[off&a.mask:])
		dst = dst[n:]
		off += int64(n)
	}
}

func (a *ChunkedBytes) Extend(n int64) int64 {
	checkLength(n)
	old := a.length
	target := a.length + n
	for int64(len(a.pages))*a.size < target {
		a.pages = append(a.pages, NewPooledPage(int(a.size)))
	}
	a.length = target
	return old
}

func (a *ChunkedBytes) Release() {
	for _, p := range a.pages {
		p.Release()
	}
	a.pages = nil
	a.length = 0
}
