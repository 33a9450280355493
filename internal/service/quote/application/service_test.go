package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"tablecover/internal/service/quote/domain"
)

type fakeIntake struct {
	mu      sync.Mutex
	calls   int
	orders  []*domain.Order
	err     error
	release chan struct{} // 非 nil 时请求会阻塞直到被关闭
	entered chan struct{}
}

func (f *fakeIntake) SubmitOrder(ctx context.Context, order *domain.Order) error {
	f.mu.Lock()
	f.calls++
	f.orders = append(f.orders, order)
	err := f.err
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	return err
}

func (f *fakeIntake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeNotifier struct {
	events []*domain.OrderSubmitted
	err    error
}

func (f *fakeNotifier) SendOrderSubmitted(ctx context.Context, event *domain.OrderSubmitted) error {
	f.events = append(f.events, event)
	return f.err
}

type fakeGuard struct {
	acquired bool
	err      error
	released []string
}

func (f *fakeGuard) Acquire(ctx context.Context, sessionID string) (bool, error) {
	return f.acquired, f.err
}

func (f *fakeGuard) Release(ctx context.Context, sessionID string) error {
	f.released = append(f.released, sessionID)
	return nil
}

var testContact = domain.Contact{FullName: "Ann Lee", Phone: "+371 2000 0000", City: "Riga"}

func newTestService(intake *fakeIntake, opts ...Option) *QuoteApplicationService {
	return NewQuoteApplicationService(NewSessionStore(time.Hour), intake, otel.Tracer("test"), opts...)
}

func addItem(t *testing.T, svc *QuoteApplicationService, id, shape, thickness string, dims map[string]string) *Snapshot {
	t.Helper()
	ctx := context.Background()
	_, err := svc.SetShape(ctx, id, shape)
	require.NoError(t, err)
	_, err = svc.SetThickness(ctx, id, thickness)
	require.NoError(t, err)
	for field, v := range dims {
		_, err = svc.SetDimension(ctx, id, field, v)
		require.NoError(t, err)
	}
	snap, err := svc.CommitItem(ctx, id)
	require.NoError(t, err)
	return snap
}

func TestService_ConfigureAndCommit(t *testing.T) {
	svc := newTestService(&fakeIntake{})
	ctx := context.Background()
	snap := svc.CreateSession(ctx)

	assert.Equal(t, "rectangle", snap.Configuration.Shape)
	assert.Equal(t, "standard", snap.Configuration.Thickness)
	assert.Equal(t, "0.00", snap.Configuration.Price)
	assert.False(t, snap.Configuration.Ready)
	assert.Equal(t, "idle", string(snap.Submission.Status))

	_, err := svc.SetDimension(ctx, snap.SessionID, "length", "200")
	require.NoError(t, err)
	got, err := svc.SetDimension(ctx, snap.SessionID, "width", "90")
	require.NoError(t, err)
	assert.Equal(t, "136.50", got.Configuration.Price)
	assert.True(t, got.Configuration.Ready)

	got, err = svc.CommitItem(ctx, snap.SessionID)
	require.NoError(t, err)
	require.Len(t, got.Basket, 1)
	assert.Equal(t, "200 × 90 cm", got.Basket[0].Dimensions)
	assert.Equal(t, "136.50", got.Total)
	// 尺寸被重置，形状和厚度保留
	assert.Equal(t, domain.Dimensions{}, got.Configuration.Dimensions)
	assert.Equal(t, "rectangle", got.Configuration.Shape)
	assert.Equal(t, "0.00", got.Configuration.Price)
}

func TestService_CommitWithoutPriceIsNoop(t *testing.T) {
	svc := newTestService(&fakeIntake{})
	ctx := context.Background()
	snap := svc.CreateSession(ctx)

	_, err := svc.SetDimension(ctx, snap.SessionID, "length", "abc")
	require.NoError(t, err)
	got, err := svc.CommitItem(ctx, snap.SessionID)
	assert.ErrorIs(t, err, domain.ErrPriceNotReady)
	assert.Empty(t, got.Basket)
	assert.Equal(t, "abc", got.Configuration.Dimensions.Length)
}

func TestService_OverflowingDimensionHasNoPrice(t *testing.T) {
	svc := newTestService(&fakeIntake{})
	ctx := context.Background()
	snap := svc.CreateSession(ctx)

	_, err := svc.SetShape(ctx, snap.SessionID, "square")
	require.NoError(t, err)
	got, err := svc.SetDimension(ctx, snap.SessionID, "length", "1e160")
	require.NoError(t, err)
	assert.Equal(t, "0.00", got.Configuration.Price)
	assert.False(t, got.Configuration.Ready)

	// 会话仍然可用
	got, err = svc.SetDimension(ctx, snap.SessionID, "length", "100")
	require.NoError(t, err)
	assert.Equal(t, "84.50", got.Configuration.Price)
}

func TestService_PanicInMutationReleasesSession(t *testing.T) {
	svc := newTestService(&fakeIntake{})
	ctx := context.Background()
	snap := svc.CreateSession(ctx)

	assert.Panics(t, func() {
		svc.mutate(ctx, snap.SessionID, "test.panic", func(w *domain.Widget) error {
			panic("boom")
		})
	})

	done := make(chan error, 1)
	go func() {
		_, err := svc.SetThickness(ctx, snap.SessionID, "thick")
		done <- err
	}()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("session is still locked after panic")
	}
}

func TestService_RejectsUnknownOptions(t *testing.T) {
	svc := newTestService(&fakeIntake{})
	ctx := context.Background()
	snap := svc.CreateSession(ctx)

	_, err := svc.SetShape(ctx, snap.SessionID, "hexagon")
	assert.ErrorIs(t, err, domain.ErrInvalidShape)
	_, err = svc.SetThickness(ctx, snap.SessionID, "extra")
	assert.ErrorIs(t, err, domain.ErrInvalidThickness)
	got, err := svc.SetDimension(ctx, snap.SessionID, "height", "10")
	assert.ErrorIs(t, err, domain.ErrInvalidDimension)
	assert.Equal(t, "rectangle", got.Configuration.Shape)
	assert.Equal(t, "standard", got.Configuration.Thickness)
}

func TestService_UnknownSession(t *testing.T) {
	svc := newTestService(&fakeIntake{})
	_, err := svc.Snapshot(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.SubmitOrder(context.Background(), "nope", testContact)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestService_SubmitOrderSuccess(t *testing.T) {
	intake := &fakeIntake{}
	notifier := &fakeNotifier{}
	svc := newTestService(intake, WithNotifier(notifier))
	ctx := context.Background()
	id := svc.CreateSession(ctx).SessionID

	addItem(t, svc, id, "rectangle", "standard", map[string]string{"length": "200", "width": "90"})
	snap := addItem(t, svc, id, "round", "thin", map[string]string{"diameter": "120"})
	require.Len(t, snap.Basket, 2)
	assert.Equal(t, "208.05", snap.Total)

	snap, err := svc.SubmitOrder(ctx, id, testContact)
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionSucceeded, snap.Submission.Status)
	assert.Empty(t, snap.Basket)
	assert.Equal(t, "0.00", snap.Total)
	assert.Equal(t, domain.Contact{}, snap.Contact)

	require.Equal(t, 1, intake.Calls())
	order := intake.orders[0]
	assert.Len(t, order.Items, 2)
	assert.Equal(t, "208.05", order.Total.StringFixed(2))
	assert.Equal(t, "Riga", order.Contact.City)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, order.ID, notifier.events[0].OrderID)
	assert.Equal(t, 2, notifier.events[0].ItemCount)
	assert.Equal(t, "208.05", notifier.events[0].Total)

	// 成功后必须先重置才能再下单
	_, err = svc.SubmitOrder(ctx, id, testContact)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	snap, err = svc.ResetSubmission(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionIdle, snap.Submission.Status)
}

func TestService_SubmitEmptyBasketMakesNoCall(t *testing.T) {
	intake := &fakeIntake{}
	svc := newTestService(intake)
	ctx := context.Background()
	id := svc.CreateSession(ctx).SessionID

	snap, err := svc.SubmitOrder(ctx, id, testContact)
	assert.ErrorIs(t, err, domain.ErrEmptyBasket)
	assert.Equal(t, domain.SubmissionFailed, snap.Submission.Status)
	assert.Equal(t, domain.ErrEmptyBasket.Error(), snap.Submission.Message)
	assert.Zero(t, intake.Calls())
}

func TestService_SubmitMissingContactMakesNoCall(t *testing.T) {
	intake := &fakeIntake{}
	svc := newTestService(intake)
	ctx := context.Background()
	id := svc.CreateSession(ctx).SessionID
	addItem(t, svc, id, "square", "thick", map[string]string{"length": "100"})

	snap, err := svc.SubmitOrder(ctx, id, domain.Contact{FullName: "Ann"})
	assert.ErrorIs(t, err, domain.ErrMissingContact)
	assert.Equal(t, domain.SubmissionFailed, snap.Submission.Status)
	assert.Len(t, snap.Basket, 1)
	assert.Zero(t, intake.Calls())
}

func TestService_SubmitFailureKeepsBasket(t *testing.T) {
	intake := &fakeIntake{err: errors.Wrap(domain.ErrIntakeUnreachable, "dial tcp")}
	notifier := &fakeNotifier{}
	svc := newTestService(intake, WithNotifier(notifier))
	ctx := context.Background()
	id := svc.CreateSession(ctx).SessionID
	before := addItem(t, svc, id, "rectangle", "standard", map[string]string{"length": "200", "width": "90"})

	snap, err := svc.SubmitOrder(ctx, id, testContact)
	assert.ErrorIs(t, err, domain.ErrIntakeUnreachable)
	assert.Equal(t, domain.SubmissionFailed, snap.Submission.Status)
	assert.Equal(t, domain.MsgIntakeUnreachable, snap.Submission.Message)
	assert.Equal(t, before.Basket, snap.Basket)
	assert.Equal(t, testContact, snap.Contact)
	assert.Empty(t, notifier.events)

	// 重试成功
	intake.mu.Lock()
	intake.err = nil
	intake.mu.Unlock()
	snap, err = svc.SubmitOrder(ctx, id, testContact)
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionSucceeded, snap.Submission.Status)
	assert.Equal(t, 2, intake.Calls())
}

func TestService_FieldErrorsSurfaceToUser(t *testing.T) {
	intake := &fakeIntake{err: &domain.IntakeFieldError{Messages: []string{"phone is invalid"}}}
	svc := newTestService(intake)
	ctx := context.Background()
	id := svc.CreateSession(ctx).SessionID
	addItem(t, svc, id, "oval", "thin", map[string]string{"length": "150", "width": "100"})

	snap, err := svc.SubmitOrder(ctx, id, testContact)
	assert.ErrorIs(t, err, domain.ErrIntakeRejected)
	assert.Equal(t, "phone is invalid", snap.Submission.Message)
}

func TestService_ConcurrentSubmitIsRejected(t *testing.T) {
	intake := &fakeIntake{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	svc := newTestService(intake)
	ctx := context.Background()
	id := svc.CreateSession(ctx).SessionID
	addItem(t, svc, id, "rectangle", "standard", map[string]string{"length": "200", "width": "90"})

	done := make(chan error, 1)
	go func() {
		_, err := svc.SubmitOrder(ctx, id, testContact)
		done <- err
	}()
	<-intake.entered

	snap, err := svc.SubmitOrder(ctx, id, testContact)
	assert.ErrorIs(t, err, domain.ErrSubmissionInFlight)
	assert.Equal(t, domain.SubmissionSubmitting, snap.Submission.Status)

	_, err = svc.CommitItem(ctx, id)
	assert.Error(t, err)
	_, err = svc.RemoveItem(ctx, id, snap.Basket[0].ID)
	assert.ErrorIs(t, err, domain.ErrSubmissionInFlight)
	_, err = svc.ResetSubmission(ctx, id)
	assert.ErrorIs(t, err, domain.ErrSubmissionInFlight)

	close(intake.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, intake.Calls())
}

func TestService_GuardHeldElsewhere(t *testing.T) {
	intake := &fakeIntake{}
	guard := &fakeGuard{acquired: false}
	svc := newTestService(intake, WithSubmissionGuard(guard))
	ctx := context.Background()
	id := svc.CreateSession(ctx).SessionID
	addItem(t, svc, id, "rectangle", "standard", map[string]string{"length": "200", "width": "90"})

	snap, err := svc.SubmitOrder(ctx, id, testContact)
	assert.ErrorIs(t, err, domain.ErrSubmissionInFlight)
	assert.Equal(t, domain.SubmissionIdle, snap.Submission.Status)
	assert.Zero(t, intake.Calls())
	assert.Empty(t, guard.released)
}

func TestService_GuardReleasedAfterSubmit(t *testing.T) {
	intake := &fakeIntake{}
	guard := &fakeGuard{acquired: true}
	svc := newTestService(intake, WithSubmissionGuard(guard))
	ctx := context.Background()
	id := svc.CreateSession(ctx).SessionID
	addItem(t, svc, id, "rectangle", "standard", map[string]string{"length": "200", "width": "90"})

	_, err := svc.SubmitOrder(ctx, id, testContact)
	require.NoError(t, err)
	assert.Equal(t, []string{id}, guard.released)
}

func TestService_GuardErrorFailsOpen(t *testing.T) {
	intake := &fakeIntake{}
	guard := &fakeGuard{err: errors.New("connection refused")}
	svc := newTestService(intake, WithSubmissionGuard(guard))
	ctx := context.Background()
	id := svc.CreateSession(ctx).SessionID
	addItem(t, svc, id, "rectangle", "standard", map[string]string{"length": "200", "width": "90"})

	_, err := svc.SubmitOrder(ctx, id, testContact)
	require.NoError(t, err)
	assert.Equal(t, 1, intake.Calls())
}

func TestService_NotifierFailureDoesNotFailSubmit(t *testing.T) {
	intake := &fakeIntake{}
	svc := newTestService(intake, WithNotifier(&fakeNotifier{err: errors.New("broker down")}))
	ctx := context.Background()
	id := svc.CreateSession(ctx).SessionID
	addItem(t, svc, id, "rectangle", "standard", map[string]string{"length": "200", "width": "90"})

	snap, err := svc.SubmitOrder(ctx, id, testContact)
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionSucceeded, snap.Submission.Status)
}

func TestService_RemoveItem(t *testing.T) {
	svc := newTestService(&fakeIntake{})
	ctx := context.Background()
	id := svc.CreateSession(ctx).SessionID
	first := addItem(t, svc, id, "rectangle", "standard", map[string]string{"length": "200", "width": "90"})
	addItem(t, svc, id, "round", "thin", map[string]string{"diameter": "120"})

	snap, err := svc.RemoveItem(ctx, id, first.Basket[0].ID)
	require.NoError(t, err)
	require.Len(t, snap.Basket, 1)
	assert.Equal(t, "71.55", snap.Total)

	snap, err = svc.RemoveItem(ctx, id, "missing")
	require.NoError(t, err)
	assert.Len(t, snap.Basket, 1)
}

func TestService_SubscribeReceivesSnapshots(t *testing.T) {
	svc := newTestService(&fakeIntake{})
	ctx := context.Background()
	id := svc.CreateSession(ctx).SessionID

	ch, cancel, err := svc.Subscribe(ctx, id)
	require.NoError(t, err)
	defer cancel()

	_, err = svc.SetShape(ctx, id, "round")
	require.NoError(t, err)

	select {
	case snap := <-ch:
		assert.Equal(t, "round", snap.Configuration.Shape)
		assert.Equal(t, []domain.DimensionField{domain.FieldDiameter}, snap.Configuration.Fields)
	case <-time.After(time.Second):
		t.Fatal("no snapshot published")
	}
}

func TestService_Quote(t *testing.T) {
	svc := newTestService(&fakeIntake{})
	ctx := context.Background()

	resp, err := svc.Quote(ctx, &QuoteRequest{Shape: "round", Thickness: "thin", Dimensions: domain.Dimensions{Diameter: "120"}})
	require.NoError(t, err)
	assert.Equal(t, "71.55", resp.Price)
	assert.True(t, resp.Ready)
	assert.Equal(t, "⌀120 cm", resp.Dimensions)

	resp, err = svc.Quote(ctx, &QuoteRequest{Dimensions: domain.Dimensions{Length: "200", Width: ""}})
	require.NoError(t, err)
	assert.Equal(t, "0.00", resp.Price)
	assert.False(t, resp.Ready)

	_, err = svc.Quote(ctx, &QuoteRequest{Shape: "triangle"})
	assert.ErrorIs(t, err, domain.ErrInvalidShape)
}

func TestService_Options(t *testing.T) {
	svc := newTestService(&fakeIntake{})
	opts := svc.Options()
	assert.Equal(t, "calculator", opts.Anchor)
	assert.Equal(t, "15.00", opts.BaseFee)
	assert.Equal(t, "0.005", opts.UnitRate)
	require.Len(t, opts.Shapes, 4)
	require.Len(t, opts.Thicknesses, 3)
	assert.Equal(t, "1.3", opts.Thicknesses[1].Multiplier)
}

func TestSessionStore_EvictIdle(t *testing.T) {
	store := NewSessionStore(time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }

	stale := store.Create()
	ch, _ := stale.watch()

	now = now.Add(2 * time.Minute)
	fresh := store.Create()

	assert.Equal(t, 1, store.EvictIdle())
	_, err := store.Get(stale.id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.Get(fresh.id)
	assert.NoError(t, err)

	_, open := <-ch
	assert.False(t, open)
}

func TestSessionStore_KeepsSubmittingSessions(t *testing.T) {
	store := NewSessionStore(time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }

	sess := store.Create()
	sess.widget.Submission.Status = domain.SubmissionSubmitting
	now = now.Add(time.Hour)

	assert.Zero(t, store.EvictIdle())
}

func TestSessionStore_GetKeepsSessionAlive(t *testing.T) {
	store := NewSessionStore(time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }

	sess := store.Create()
	now = now.Add(50 * time.Second)
	_, err := store.Get(sess.id)
	require.NoError(t, err)

	// 距创建已超过 ttl，但距上次访问没有
	now = now.Add(50 * time.Second)
	assert.Zero(t, store.EvictIdle())
	_, err = store.Get(sess.id)
	assert.NoError(t, err)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, store.EvictIdle())
}
