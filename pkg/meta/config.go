// pkg/meta/config.go

package meta

import "time"

// Config for catalog clients.
type Config struct {
	Retries  int
	ReadOnly bool
	Prefix   string // key namespace shared by every entry
	Timeout  time.Duration
}

func (c *Config) keyPrefix() string {
	if c.Prefix == "" {
		return "seqstore:"
	}
	return c.Prefix
}
