// internal/service/quote/application/service.go
package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tablecover/internal/pkg/logger"
	"tablecover/internal/pkg/metrics"
	"tablecover/internal/service/quote/domain"
	"tablecover/internal/service/quote/domain/port"
)

// QuoteApplicationService 编排计价下单组件的所有用例。
// 每个会话有自己的锁；向接单端点发请求期间不持有锁，状态为 Submitting。
type QuoteApplicationService struct {
	sessions      *SessionStore
	intake        port.IntakeService
	notifier      port.NotificationProducer // 可选
	guard         port.SubmissionGuard      // 可选，多副本部署时使用
	rules         domain.ContactRules
	tracer        trace.Tracer
	submitTimeout time.Duration
}

type Option func(*QuoteApplicationService)

func WithNotifier(n port.NotificationProducer) Option {
	return func(s *QuoteApplicationService) { s.notifier = n }
}

func WithSubmissionGuard(g port.SubmissionGuard) Option {
	return func(s *QuoteApplicationService) { s.guard = g }
}

func WithContactRules(r domain.ContactRules) Option {
	return func(s *QuoteApplicationService) { s.rules = r }
}

func WithSubmitTimeout(d time.Duration) Option {
	return func(s *QuoteApplicationService) { s.submitTimeout = d }
}

func NewQuoteApplicationService(sessions *SessionStore, intake port.IntakeService, tracer trace.Tracer, opts ...Option) *QuoteApplicationService {
	s := &QuoteApplicationService{
		sessions:      sessions,
		intake:        intake,
		rules:         domain.RequiredContactRules{},
		tracer:        tracer,
		submitTimeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession 挂载一个新的组件实例，使用默认配置
func (s *QuoteApplicationService) CreateSession(ctx context.Context) *Snapshot {
	_, span := s.tracer.Start(ctx, "app.CreateSession")
	defer span.End()

	sess := s.sessions.Create()
	span.SetAttributes(attribute.String("session.id", sess.id))

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return toSnapshot(sess.id, sess.widget)
}

// Snapshot 读取当前视图，价格在读取时重新推导
func (s *QuoteApplicationService) Snapshot(ctx context.Context, sessionID string) (*Snapshot, error) {
	return s.mutate(ctx, sessionID, "app.Snapshot", nil)
}

func (s *QuoteApplicationService) SetShape(ctx context.Context, sessionID, raw string) (*Snapshot, error) {
	return s.mutate(ctx, sessionID, "app.SetShape", func(w *domain.Widget) error {
		shape, err := domain.ParseShape(raw)
		if err != nil {
			return err
		}
		return w.Configuration.SetShape(shape)
	})
}

func (s *QuoteApplicationService) SetThickness(ctx context.Context, sessionID, raw string) (*Snapshot, error) {
	return s.mutate(ctx, sessionID, "app.SetThickness", func(w *domain.Widget) error {
		t, err := domain.ParseThickness(raw)
		if err != nil {
			return err
		}
		return w.Configuration.SetThickness(t)
	})
}

// SetDimension 原样保存输入文本；无法解析的值只会让价格变成 0，不会报错。
func (s *QuoteApplicationService) SetDimension(ctx context.Context, sessionID, field, raw string) (*Snapshot, error) {
	return s.mutate(ctx, sessionID, "app.SetDimension", func(w *domain.Widget) error {
		f, err := domain.ParseDimensionField(field)
		if err != nil {
			return err
		}
		return w.Configuration.SetDimension(f, raw)
	})
}

// CommitItem 把当前配置加入购物篮，价格为 0 时返回 domain.ErrPriceNotReady。
func (s *QuoteApplicationService) CommitItem(ctx context.Context, sessionID string) (*Snapshot, error) {
	return s.mutate(ctx, sessionID, "app.CommitItem", func(w *domain.Widget) error {
		item, err := w.Commit()
		if err != nil {
			return err
		}
		metrics.BasketCommitsTotal.WithLabelValues(string(item.Shape), string(item.Thickness)).Inc()
		logger.Ctx(ctx).Info().
			Str("item_id", item.ID).
			Str("dimensions", item.Dimensions).
			Str("price", item.Price.StringFixed(2)).
			Msg("item added to basket")
		return nil
	})
}

// RemoveItem 删除条目，ID 不存在时视为成功
func (s *QuoteApplicationService) RemoveItem(ctx context.Context, sessionID, itemID string) (*Snapshot, error) {
	return s.mutate(ctx, sessionID, "app.RemoveItem", func(w *domain.Widget) error {
		_, err := w.RemoveItem(itemID)
		return err
	})
}

// ResetSubmission 对应“再下一单”
func (s *QuoteApplicationService) ResetSubmission(ctx context.Context, sessionID string) (*Snapshot, error) {
	return s.mutate(ctx, sessionID, "app.ResetSubmission", func(w *domain.Widget) error {
		return w.Submission.Reset()
	})
}

// SubmitOrder 把整个购物篮和联系信息作为一次请求发送给接单端点。
// 返回的快照总是反映最新状态；error 用于接口层决定响应码。
func (s *QuoteApplicationService) SubmitOrder(ctx context.Context, sessionID string, contact domain.Contact) (*Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "app.SubmitOrder")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))
	ctx = withTraceLogger(ctx, span)
	log := logger.Ctx(ctx)

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	// 1. 跨副本的并发保护
	if s.guard != nil {
		acquired, gerr := s.guard.Acquire(ctx, sessionID)
		if gerr != nil {
			// 守卫不可用时退化为仅依赖本地状态
			log.Warn().Err(gerr).Msg("submission guard unavailable, relying on local state")
		} else if !acquired {
			metrics.SubmissionsTotal.WithLabelValues("in_flight").Inc()
			snap, _ := s.Snapshot(ctx, sessionID)
			return snap, domain.ErrSubmissionInFlight
		} else {
			defer func() {
				if rerr := s.guard.Release(context.WithoutCancel(ctx), sessionID); rerr != nil {
					log.Warn().Err(rerr).Msg("failed to release submission guard")
				}
			}()
		}
	}

	// 2. 本地校验并进入 Submitting
	var order *domain.Order
	snap := sess.update(func(w *domain.Widget) {
		order, err = w.BeginSubmission(contact, s.rules)
	})
	sess.publish(snap)

	if err != nil {
		outcome := "invalid"
		if errors.Is(err, domain.ErrSubmissionInFlight) {
			outcome = "in_flight"
		}
		metrics.SubmissionsTotal.WithLabelValues(outcome).Inc()
		span.RecordError(err)
		log.Info().Err(err).Msg("order submission rejected locally")
		return snap, err
	}

	span.SetAttributes(
		attribute.String("order.id", order.ID),
		attribute.Int("order.items", len(order.Items)),
		attribute.String("order.total", order.Total.StringFixed(2)),
	)
	log.Info().Str("order_id", order.ID).Int("items", len(order.Items)).Msg("submitting order to intake endpoint")

	// 3. 发送请求。请求与调用方的取消解耦，一旦发出就运行到结束或超时。
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.submitTimeout)
	start := time.Now()
	intakeErr := s.intake.SubmitOrder(callCtx, order)
	cancel()
	metrics.IntakeDuration.Observe(time.Since(start).Seconds())

	// 4. 根据结果完成状态流转
	snap = sess.update(func(w *domain.Widget) {
		w.CompleteSubmission(intakeErr)
	})
	sess.publish(snap)

	if intakeErr != nil {
		outcome := "rejected"
		if errors.Is(intakeErr, domain.ErrIntakeUnreachable) {
			outcome = "unreachable"
		}
		metrics.SubmissionsTotal.WithLabelValues(outcome).Inc()
		span.RecordError(intakeErr)
		span.SetStatus(codes.Error, "intake endpoint did not accept the order")
		log.Error().Err(intakeErr).Str("order_id", order.ID).Msg("order submission failed, basket preserved")
		return snap, intakeErr
	}

	metrics.SubmissionsTotal.WithLabelValues("succeeded").Inc()
	span.AddEvent("Order accepted by intake endpoint.")
	log.Info().Str("order_id", order.ID).Msg("order accepted by intake endpoint")

	s.notifySubmitted(ctx, sessionID, order, span)
	return snap, nil
}

// notifySubmitted 发布通知失败只记录日志，不影响已经成功的提交
func (s *QuoteApplicationService) notifySubmitted(ctx context.Context, sessionID string, order *domain.Order, span trace.Span) {
	if s.notifier == nil {
		return
	}
	event := &domain.OrderSubmitted{
		EventID:     uuid.New().String(),
		TraceID:     span.SpanContext().TraceID().String(),
		OrderID:     order.ID,
		SessionID:   sessionID,
		ItemCount:   len(order.Items),
		Total:       order.Total.StringFixed(2),
		City:        order.Contact.City,
		Summary:     order.Summary(),
		SubmittedAt: order.SubmittedAt,
	}
	if err := s.notifier.SendOrderSubmitted(context.WithoutCancel(ctx), event); err != nil {
		span.RecordError(err)
		logger.Ctx(ctx).Warn().Err(err).Str("order_id", order.ID).Msg("failed to publish order submitted event")
	}
}

// Subscribe 订阅会话的快照变化，返回的函数用于取消订阅
func (s *QuoteApplicationService) Subscribe(ctx context.Context, sessionID string) (<-chan *Snapshot, func(), error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := sess.watch()
	return ch, cancel, nil
}

// Quote 是无状态的即时报价，不涉及任何会话
func (s *QuoteApplicationService) Quote(ctx context.Context, req *QuoteRequest) (*QuoteResponse, error) {
	_, span := s.tracer.Start(ctx, "app.Quote")
	defer span.End()

	cfg := domain.NewConfiguration()
	if req.Shape != "" {
		shape, err := domain.ParseShape(req.Shape)
		if err != nil {
			return nil, err
		}
		cfg.Shape = shape
	}
	if req.Thickness != "" {
		t, err := domain.ParseThickness(req.Thickness)
		if err != nil {
			return nil, err
		}
		cfg.Thickness = t
	}
	cfg.Dimensions = req.Dimensions

	price := cfg.Price()
	resp := &QuoteResponse{
		Shape:     string(cfg.Shape),
		Thickness: string(cfg.Thickness),
		Price:     price.StringFixed(2),
		Ready:     price.IsPositive(),
	}
	if resp.Ready {
		resp.Dimensions = domain.FormatDimensions(cfg.Shape, cfg.Dimensions)
	}
	span.SetAttributes(attribute.String("quote.price", resp.Price))
	return resp, nil
}

// Options 列出形状和厚度档位
func (s *QuoteApplicationService) Options() *OptionsResponse {
	resp := &OptionsResponse{
		Anchor:   domain.Anchor,
		BaseFee:  domain.BaseFee.StringFixed(2),
		UnitRate: domain.UnitRate.String(),
	}
	for _, shape := range domain.Shapes {
		resp.Shapes = append(resp.Shapes, ShapeOption{Value: string(shape), Label: shape.Label(), Fields: shape.Fields()})
	}
	for _, t := range domain.Thicknesses {
		resp.Thicknesses = append(resp.Thicknesses, ThicknessOption{Value: string(t), Label: t.Label(), Multiplier: t.Multiplier().StringFixed(1)})
	}
	return resp
}

// mutate 在会话锁内执行 fn 并生成快照；fn 为 nil 时只读。
// fn 返回错误时状态保持 fn 执行后的样子，快照依然返回。
func (s *QuoteApplicationService) mutate(ctx context.Context, sessionID, spanName string, fn func(w *domain.Widget) error) (*Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, spanName)
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))
	ctx = withTraceLogger(ctx, span)

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var fnErr error
	snap := sess.update(func(w *domain.Widget) {
		if fn != nil {
			fnErr = fn(w)
		}
	})

	if fn != nil {
		sess.publish(snap)
	}
	if fnErr != nil {
		span.RecordError(fnErr)
		logger.Ctx(ctx).Debug().Err(fnErr).Str("op", spanName).Msg("widget operation rejected")
	}
	return snap, fnErr
}

// withTraceLogger 让后续日志都带上 trace_id，便于和 Jaeger 中的 trace 对应
func withTraceLogger(ctx context.Context, span trace.Span) context.Context {
	sc := span.SpanContext()
	if !sc.HasTraceID() {
		return ctx
	}
	return logger.With(ctx, map[string]string{"trace_id": sc.TraceID().String()})
}
