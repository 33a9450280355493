// internal/pkg/redis/client.go
package redis

import (
	"context"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
)

// Client 封装了 go-redis 客户端
type Client struct {
	client *goredis.Client
}

// NewClient 连接 Redis 并做一次 PING 检查
func NewClient(ctx context.Context, addr, password string, db int) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, errors.Wrapf(err, "failed to connect to redis at %s", addr)
	}
	return &Client{client: rdb}, nil
}

// GetClient 返回底层客户端，用于 pipeline 等高级操作
func (c *Client) GetClient() *goredis.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}
