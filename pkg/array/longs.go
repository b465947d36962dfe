// pkg/array/longs.go

package array

// DirectLongs is a LongIndex backed by one slice.
type DirectLongs struct {
	data []int64
}

func NewDirectLongs(length int64) *DirectLongs {
	checkLength(length)
	return &DirectLongs{data: make([]int64, length)}
}

func (a *DirectLongs) Length() int64        { return int64(len(a.data)) }
func (a *DirectLongs) Get(i int64) int64    { return a.data[i] }
func (a *DirectLongs) Set(i int64, v int64) { a.data[i] = v }

func (a *DirectLongs) Swap(i, j int64) {
	a.data[i], a.data[j] = a.data[j], a.data[i]
}

// ChunkedLongs is a LongIndex split into pages of 1<<bits entries.
type ChunkedLongs struct {
	bits   uint
	mask   int64
	length int64
	pages  [][]int64
}

func NewChunkedLongs(length int64, bits uint) *ChunkedLongs {
	checkLength(length)
	if bits > 30 {
		panic("page bits out of range")
	}
	a := &ChunkedLongs{bits: bits, mask: 1<<bits - 1, length: length}
	size := int64(1) << bits
	for left := length; left > 0; left -= size {
		n := size
		if left < size {
			n = left
		}
		a.pages = append(a.pages, make([]int64, n))
	}
	return a
}

func (a *ChunkedLongs) Length() int64 { return a.length }

func (a *ChunkedLongs) Get(i int64) int64 {
	return a.pages[i>>a.bits][i&a.mask]
}

func (a *ChunkedLongs) Set(i int64, v int64) {
	a.pages[i>>a.bits][i&a.mask] = v
}

func (a *ChunkedLongs) Swap(i, j int64) {
	pi, oi := a.pages[i>>a.bits], i&a.mask
	pj, oj := a.pages[j>>a.bits], j&a.mask
	pi[oi], pj[oj] = pj[oj], pi[oi]
}
