package port

import "context"

// SubmissionGuard 保证同一个会话同一时间最多只有一个提交在进行。
type SubmissionGuard interface {
	// Acquire 返回 false 表示已经有一个提交在进行中
	Acquire(ctx context.Context, sessionID string) (bool, error)
	Release(ctx context.Context, sessionID string) error
}
