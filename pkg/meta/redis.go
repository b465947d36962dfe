// pkg/meta/redis.go

package meta

import (
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Keys, below the configured prefix:
//
//	sdf:<id>  JSON encoded Entry
//	sdfs      sorted set of ids scored by registration time
const (
	entryPrefix = "sdf:"
	allEntries  = "sdfs"
)

type redisCatalog struct {
	conf   *Config
	prefix string
	rdb    redis.UniversalClient
}

var _ Catalog = &redisCatalog{}

func init() {
	Register("redis", newRedisCatalog)
	Register("rediss", newRedisCatalog)
}

// newRedisCatalog returns a catalog kept in Redis. An address of the form
// master,sentinel1,sentinel2 connects through Sentinel.
func newRedisCatalog(driver, addr string, conf *Config) (Catalog, error) {
	url := driver + "://" + addr
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", url)
	}
	timeout := conf.Timeout
	if timeout == 0 {
		timeout = time.Second * 5
	}

	var rdb redis.UniversalClient
	if strings.Contains(opt.Addr, ",") {
		var fopt redis.FailoverOptions
		ps := strings.Split(opt.Addr, ",")
		fopt.MasterName = ps[0]
		fopt.SentinelAddrs = ps[1:]
		for i, saddr := range fopt.SentinelAddrs {
			h, p, err := net.SplitHostPort(saddr)
			if err != nil {
				fopt.SentinelAddrs[i] = net.JoinHostPort(saddr, "26379")
			} else if p == "" {
				fopt.SentinelAddrs[i] = net.JoinHostPort(h, "26379")
			}
		}
		fopt.Username = opt.Username
		fopt.Password = opt.Password
		if fopt.Password == "" {
			fopt.Password = os.Getenv("REDIS_PASSWORD")
		}
		fopt.SentinelPassword = os.Getenv("SENTINEL_PASSWORD")
		fopt.DB = opt.DB
		fopt.TLSConfig = opt.TLSConfig
		fopt.MaxRetries = conf.Retries
		fopt.MinRetryBackoff = time.Millisecond * 100
		fopt.MaxRetryBackoff = time.Minute
		fopt.ReadTimeout = timeout
		fopt.WriteTimeout = timeout
		rdb = redis.NewFailoverClient(&fopt)
	} else {
		if opt.Password == "" {
			opt.Password = os.Getenv("REDIS_PASSWORD")
		}
		opt.MaxRetries = conf.Retries
		opt.MinRetryBackoff = time.Millisecond * 100
		opt.MaxRetryBackoff = time.Minute
		opt.ReadTimeout = timeout
		opt.WriteTimeout = timeout
		rdb = redis.NewClient(opt)
	}

	c := &redisCatalog{conf: conf, prefix: conf.keyPrefix(), rdb: rdb}
	start := time.Now()
	if err = rdb.Ping(context.Background()).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(err, "ping redis %s", opt.Addr)
	}
	logger.Infof("Ping redis: %s", time.Since(start))
	return c, nil
}

func (c *redisCatalog) Name() string { return "redis" }

func (c *redisCatalog) entryKey(id uuid.UUID) string {
	return c.prefix + entryPrefix + id.String()
}

func (c *redisCatalog) allKey() string {
	return c.prefix + allEntries
}

type timeoutError interface {
	Timeout() bool
}

func shouldRetry(err error) bool {
	switch {
	case errors.Is(err, redis.TxFailedErr):
		return true
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case err == io.EOF, errors.Is(err, io.ErrUnexpectedEOF):
		return true
	}
	if v, ok := err.(timeoutError); ok && v.Timeout() {
		return true
	}
	switch strings.SplitN(err.Error(), " ", 2)[0] {
	case "LOADING", "READONLY", "CLUSTERDOWN", "TRYAGAIN":
		return true
	}
	return false
}

func (c *redisCatalog) txn(ctx context.Context, txf func(tx *redis.Tx) error, keys ...string) error {
	if c.conf.ReadOnly {
		return ErrReadOnly
	}
	var err error
	for i := 0; i < 50; i++ {
		err = c.rdb.Watch(ctx, txf, keys...)
		if shouldRetry(err) {
			time.Sleep(time.Microsecond * 100 * time.Duration(rand.Int()%(i+1)))
			continue
		}
		return err
	}
	return err
}

func (c *redisCatalog) get(ctx context.Context, get func(context.Context, string) *redis.StringCmd, id uuid.UUID) (*Entry, error) {
	body, err := get(ctx, c.entryKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errors.Wrapf(ErrNotFound, "%s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", id)
	}
	var e Entry
	if err = json.Unmarshal(body, &e); err != nil {
		return nil, errors.Wrapf(err, "decode entry %s", id)
	}
	return &e, nil
}

func (c *redisCatalog) Register(ctx context.Context, e *Entry, force bool) error {
	key := c.entryKey(e.SdfID)
	return c.txn(ctx, func(tx *redis.Tx) error {
		old, err := c.get(ctx, tx.Get, e.SdfID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if err = checkRegister(old, e, force); err != nil {
			return err
		}
		n := *e
		if n.Registered.IsZero() {
			n.Registered = time.Now()
		}
		body, err := json.Marshal(&n)
		if err != nil {
			return errors.Wrap(err, "encode entry")
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, body, 0)
			pipe.ZAdd(ctx, c.allKey(), redis.Z{Score: float64(n.Registered.UnixNano()), Member: n.SdfID.String()})
			return nil
		})
		return err
	}, key)
}

func (c *redisCatalog) Lookup(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return c.get(ctx, c.rdb.Get, id)
}

func (c *redisCatalog) List(ctx context.Context) ([]*Entry, error) {
	ids, err := c.rdb.ZRange(ctx, c.allKey(), 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "list entries")
	}
	entries := make([]*Entry, 0, len(ids))
	for _, s := range ids {
		id, err := uuid.Parse(s)
		if err != nil {
			logger.Warnf("skip bad catalog member %q: %s", s, err)
			continue
		}
		e, err := c.get(ctx, c.rdb.Get, id)
		if errors.Is(err, ErrNotFound) {
			// removed concurrently
			continue
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	sortEntries(entries)
	return entries, nil
}

func (c *redisCatalog) Remove(ctx context.Context, id uuid.UUID) error {
	key := c.entryKey(id)
	return c.txn(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return errors.Wrapf(ErrNotFound, "%s", id)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.ZRem(ctx, c.allKey(), id.String())
			return nil
		})
		return err
	}, key)
}

func (c *redisCatalog) Close() error {
	return c.rdb.Close()
}
