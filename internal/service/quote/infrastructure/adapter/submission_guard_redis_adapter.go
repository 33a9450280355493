package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
)

// SubmissionGuardRedisAdapter 是 port.SubmissionGuard 的 Redis 实现。
// 多个副本同时服务同一个会话时，用 SET NX 保证只有一个提交在进行。
type SubmissionGuardRedisAdapter struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewSubmissionGuardRedisAdapter 创建守卫，ttl 应大于一次提交的超时时间，
// 这样即使进程在提交中途退出，锁也会自动过期。
func NewSubmissionGuardRedisAdapter(client *goredis.Client, ttl time.Duration) *SubmissionGuardRedisAdapter {
	return &SubmissionGuardRedisAdapter{client: client, ttl: ttl}
}

func guardKey(sessionID string) string {
	return fmt.Sprintf("quote:submitting:{%s}", sessionID)
}

func (a *SubmissionGuardRedisAdapter) Acquire(ctx context.Context, sessionID string) (bool, error) {
	ok, err := a.client.SetNX(ctx, guardKey(sessionID), time.Now().Unix(), a.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "submission guard acquire failed")
	}
	return ok, nil
}

func (a *SubmissionGuardRedisAdapter) Release(ctx context.Context, sessionID string) error {
	if err := a.client.Del(ctx, guardKey(sessionID)).Err(); err != nil {
		return errors.Wrap(err, "submission guard release failed")
	}
	return nil
}
