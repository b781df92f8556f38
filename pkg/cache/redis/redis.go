// Package redis holds the raw connection glue for the ledger's cache store.
// Key prefixing and the typed accessors live in internal/clients.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// defaultPingTimeout bounds the connect-time health check when no timeout
// was configured.
const defaultPingTimeout = 5 * time.Second

// ConnectionInfo carries the dial settings. Timeout applies to reads and
// writes both, and to the initial ping.
type ConnectionInfo struct {
	Addr        string
	Password    string
	DB          int
	MaxRetries  int
	DialTimeout time.Duration
	Timeout     time.Duration
}

type Client = goredis.Client

// NewRedisConnection dials redis and verifies the connection with a ping
// before handing the client out.
func NewRedisConnection(info ConnectionInfo) (*Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         info.Addr,
		Password:     info.Password,
		DB:           info.DB,
		MaxRetries:   info.MaxRetries,
		DialTimeout:  info.DialTimeout,
		ReadTimeout:  info.Timeout,
		WriteTimeout: info.Timeout,
	})

	pingTimeout := info.Timeout
	if pingTimeout <= 0 {
		pingTimeout = defaultPingTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", info.Addr, err)
	}
	return client, nil
}

func Close(c *Client) {
	if c == nil {
		return
	}
	_ = c.Close()
}
