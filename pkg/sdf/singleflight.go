// pkg/sdf/singleflight.go

package sdf

import "sync"

type request[V any] struct {
	wg  sync.WaitGroup
	val V
	err error
}

// flight lets concurrent misses on the same key share one load.
type flight[V any] struct {
	sync.Mutex
	rs map[int64]*request[V]
}

func (con *flight[V]) Execute(key int64, fn func() (V, error)) (V, error) {
	con.Lock()
	if con.rs == nil {
		con.rs = make(map[int64]*request[V])
	}
	if c, ok := con.rs[key]; ok {
		con.Unlock()
		c.wg.Wait()
		return c.val, c.err
	}
	c := new(request[V])
	c.wg.Add(1)
	con.rs[key] = c
	con.Unlock()

	c.val, c.err = fn()
	c.wg.Done()

	con.Lock()
	delete(con.rs, key)
	con.Unlock()

	return c.val, c.err
}
