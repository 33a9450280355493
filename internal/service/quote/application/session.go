// internal/service/quote/application/session.go
package application

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"tablecover/internal/pkg/logger"
	"tablecover/internal/pkg/metrics"
	"tablecover/internal/service/quote/domain"
)

var ErrSessionNotFound = errors.New("widget session not found")

// session 是一个访客的组件实例。mu 保护 widget；提交请求进行中时 mu 不被持有。
// lastSeen 是最近访问时间（UnixNano），只在持有 SessionStore.mu 时写入。
type session struct {
	id       string
	mu       sync.Mutex
	widget   *domain.Widget
	lastSeen atomic.Int64

	watchMu  sync.Mutex
	watchers map[int]chan *Snapshot
	nextID   int
}

// SessionStore 在内存中保存组件会话，进程重启后全部丢失。
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *SessionStore) Create() *session {
	sess := &session{
		id:       uuid.New().String(),
		widget:   domain.NewWidget(),
		watchers: make(map[int]chan *Snapshot),
	}
	sess.lastSeen.Store(s.now().UnixNano())
	s.mu.Lock()
	s.sessions[sess.id] = sess
	n := len(s.sessions)
	s.mu.Unlock()
	metrics.ActiveSessions.Set(float64(n))
	return sess
}

func (s *SessionStore) Get(id string) (*session, error) {
	// 在读锁内刷新访问时间，EvictIdle 持有写锁，不会在查到和刷新之间删掉会话
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.lastSeen.Store(s.now().UnixNano())
	return sess, nil
}

// EvictIdle 删除超过 ttl 未访问的会话，正在提交的会话不会被删除。
func (s *SessionStore) EvictIdle() int {
	cutoff := s.now().Add(-s.ttl).UnixNano()

	s.mu.Lock()
	var evicted []*session
	for id, sess := range s.sessions {
		if !sess.mu.TryLock() {
			continue
		}
		idle := sess.lastSeen.Load() < cutoff && sess.widget.Submission.Status != domain.SubmissionSubmitting
		sess.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			evicted = append(evicted, sess)
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()

	for _, sess := range evicted {
		sess.closeWatchers()
	}
	metrics.ActiveSessions.Set(float64(n))
	return len(evicted)
}

// Run 周期性清理空闲会话，直到 ctx 被取消
func (s *SessionStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.EvictIdle(); n > 0 {
				logger.Ctx(ctx).Debug().Int("evicted", n).Msg("idle widget sessions evicted")
			}
		case <-ctx.Done():
			return
		}
	}
}

// update 在会话锁内执行 fn，并返回锁内生成的快照
func (sess *session) update(fn func(w *domain.Widget)) *Snapshot {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	fn(sess.widget)
	return toSnapshot(sess.id, sess.widget)
}

func (sess *session) watch() (<-chan *Snapshot, func()) {
	sess.watchMu.Lock()
	defer sess.watchMu.Unlock()
	id := sess.nextID
	sess.nextID++
	ch := make(chan *Snapshot, 8)
	sess.watchers[id] = ch
	return ch, func() {
		sess.watchMu.Lock()
		defer sess.watchMu.Unlock()
		if c, ok := sess.watchers[id]; ok {
			delete(sess.watchers, id)
			close(c)
		}
	}
}

// publish 非阻塞地把快照推送给所有订阅者，慢的订阅者会丢帧
func (sess *session) publish(snap *Snapshot) {
	sess.watchMu.Lock()
	defer sess.watchMu.Unlock()
	for _, ch := range sess.watchers {
		select {
		case ch <- snap:
		default:
		}
	}
}

func (sess *session) closeWatchers() {
	sess.watchMu.Lock()
	defer sess.watchMu.Unlock()
	for id, ch := range sess.watchers {
		delete(sess.watchers, id)
		close(ch)
	}
}
