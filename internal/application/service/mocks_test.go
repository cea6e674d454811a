package service

import (
	"context"
	"sync"
	"time"

	"github.com/garyjia/coselection/internal/application/dispatcher"
	"github.com/garyjia/coselection/internal/application/port"
	"github.com/garyjia/coselection/internal/domain/entity"
	"github.com/garyjia/coselection/internal/domain/event"
	"github.com/garyjia/coselection/internal/domain/workflow"
)

// Mock repositories keep records in maps; any func field overrides the default behavior.

type mockLeadRepo struct {
	leads            map[string]*entity.Lead
	updateStatusFunc func(ctx context.Context, id string, from, to workflow.State, at time.Time) error
	swapOwnerFunc    func(ctx context.Context, lead *entity.Lead, expectedVersion int64, expectedOwner string) error
}

func newMockLeadRepo(leads ...*entity.Lead) *mockLeadRepo {
	m := &mockLeadRepo{leads: make(map[string]*entity.Lead)}
	for _, l := range leads {
		m.leads[l.ID] = l.Clone()
	}
	return m
}

func (m *mockLeadRepo) Create(ctx context.Context, lead *entity.Lead) error {
	m.leads[lead.ID] = lead.Clone()
	return nil
}

func (m *mockLeadRepo) GetByID(ctx context.Context, id string) (*entity.Lead, error) {
	l, ok := m.leads[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	c := l.Clone()
	c.Timeline = nil
	return c, nil
}

func (m *mockLeadRepo) List(ctx context.Context, filter port.ListFilter) ([]*entity.Lead, error) {
	var out []*entity.Lead
	for _, l := range m.leads {
		if filter.Status == "" || l.Status == filter.Status {
			out = append(out, l.Clone())
		}
	}
	return out, nil
}

func (m *mockLeadRepo) UpdateStatus(ctx context.Context, id string, from, to workflow.State, at time.Time) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, from, to, at)
	}
	l, ok := m.leads[id]
	if !ok || l.Status != from {
		return port.ErrStaleWrite
	}
	l.Status = to
	l.UpdatedAt = at
	return nil
}

func (m *mockLeadRepo) UpdateFields(ctx context.Context, lead *entity.Lead, status workflow.State) error {
	l, ok := m.leads[lead.ID]
	if !ok || l.Status != status {
		return port.ErrStaleWrite
	}
	m.leads[lead.ID] = lead.Clone()
	return nil
}

func (m *mockLeadRepo) SwapOwner(ctx context.Context, lead *entity.Lead, expectedVersion int64, expectedOwner string) error {
	if m.swapOwnerFunc != nil {
		return m.swapOwnerFunc(ctx, lead, expectedVersion, expectedOwner)
	}
	l, ok := m.leads[lead.ID]
	if !ok || l.Version != expectedVersion || l.OwnerID != expectedOwner || l.Status != lead.Status {
		return port.ErrStaleWrite
	}
	l.OwnerID = lead.OwnerID
	l.OwnerName = lead.OwnerName
	l.Version = lead.Version
	return nil
}

type mockTransactionRepo struct {
	txns            map[string]*entity.EarningsTransaction
	updateStateFunc func(ctx context.Context, id string, from, to workflow.State, at time.Time) error
}

func newMockTransactionRepo(txns ...*entity.EarningsTransaction) *mockTransactionRepo {
	m := &mockTransactionRepo{txns: make(map[string]*entity.EarningsTransaction)}
	for _, t := range txns {
		m.txns[t.ID] = t.Clone()
	}
	return m
}

func (m *mockTransactionRepo) Create(ctx context.Context, txn *entity.EarningsTransaction) error {
	m.txns[txn.ID] = txn.Clone()
	return nil
}

func (m *mockTransactionRepo) GetByID(ctx context.Context, id string) (*entity.EarningsTransaction, error) {
	t, ok := m.txns[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	c := t.Clone()
	c.Timeline = nil
	return c, nil
}

func (m *mockTransactionRepo) List(ctx context.Context, filter port.ListFilter) ([]*entity.EarningsTransaction, error) {
	var out []*entity.EarningsTransaction
	for _, t := range m.txns {
		if filter.AccountID == "" || t.AccountID == filter.AccountID {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

func (m *mockTransactionRepo) ListByState(ctx context.Context, state workflow.State, limit int) ([]*entity.EarningsTransaction, error) {
	var out []*entity.EarningsTransaction
	for _, t := range m.txns {
		if t.State == state && !t.IsOffset() {
			c := t.Clone()
			c.Timeline = nil
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockTransactionRepo) UpdateState(ctx context.Context, id string, from, to workflow.State, at time.Time) error {
	if m.updateStateFunc != nil {
		return m.updateStateFunc(ctx, id, from, to, at)
	}
	t, ok := m.txns[id]
	if !ok || t.State != from || t.IsOffset() {
		return port.ErrStaleWrite
	}
	t.State = to
	t.UpdatedAt = at
	return nil
}

func (m *mockTransactionRepo) MarkReversed(ctx context.Context, id string, state workflow.State, adjustmentID string, at time.Time) error {
	t, ok := m.txns[id]
	if !ok || t.State != state || t.IsOffset() {
		return port.ErrStaleWrite
	}
	t.ReversedBy = adjustmentID
	t.UpdatedAt = at
	return nil
}

type mockPayoutRepo struct {
	payouts map[string]*entity.Payout
}

func (m *mockPayoutRepo) Create(ctx context.Context, payout *entity.Payout) error {
	if m.payouts == nil {
		m.payouts = make(map[string]*entity.Payout)
	}
	m.payouts[payout.ID] = payout.Clone()
	return nil
}

func (m *mockPayoutRepo) GetByID(ctx context.Context, id string) (*entity.Payout, error) {
	p, ok := m.payouts[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	c := p.Clone()
	c.Timeline = nil
	return c, nil
}

func (m *mockPayoutRepo) List(ctx context.Context, filter port.ListFilter) ([]*entity.Payout, error) {
	var out []*entity.Payout
	for _, p := range m.payouts {
		out = append(out, p.Clone())
	}
	return out, nil
}

func (m *mockPayoutRepo) UpdateStatus(ctx context.Context, id string, from, to workflow.State, at time.Time) error {
	p, ok := m.payouts[id]
	if !ok || p.Status != from {
		return port.ErrStaleWrite
	}
	p.Status = to
	p.UpdatedAt = at
	return nil
}

type mockDisputeRepo struct {
	disputes map[string]*entity.DisputeCase
}

func (m *mockDisputeRepo) Create(ctx context.Context, dispute *entity.DisputeCase) error {
	if m.disputes == nil {
		m.disputes = make(map[string]*entity.DisputeCase)
	}
	m.disputes[dispute.ID] = dispute.Clone()
	return nil
}

func (m *mockDisputeRepo) GetByID(ctx context.Context, id string) (*entity.DisputeCase, error) {
	d, ok := m.disputes[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	c := d.Clone()
	c.Timeline = nil
	return c, nil
}

func (m *mockDisputeRepo) List(ctx context.Context, filter port.ListFilter) ([]*entity.DisputeCase, error) {
	var out []*entity.DisputeCase
	for _, d := range m.disputes {
		if filter.Status == "" || d.Status == filter.Status {
			c := d.Clone()
			c.Timeline = nil
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockDisputeRepo) Update(ctx context.Context, dispute *entity.DisputeCase, from workflow.State) error {
	d, ok := m.disputes[dispute.ID]
	if !ok || d.Status != from {
		return port.ErrStaleWrite
	}
	m.disputes[dispute.ID] = dispute.Clone()
	return nil
}

type mockAccountRepo struct {
	accounts map[string]*entity.Account
}

func newMockAccountRepo(accounts ...*entity.Account) *mockAccountRepo {
	m := &mockAccountRepo{accounts: make(map[string]*entity.Account)}
	for _, a := range accounts {
		c := *a
		m.accounts[a.ID] = &c
	}
	return m
}

func (m *mockAccountRepo) Create(ctx context.Context, account *entity.Account) error {
	c := *account
	m.accounts[account.ID] = &c
	return nil
}

func (m *mockAccountRepo) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (m *mockAccountRepo) UpdateVerification(ctx context.Context, id string, status entity.VerificationStatus, at time.Time) error {
	a, ok := m.accounts[id]
	if !ok {
		return port.ErrNotFound
	}
	a.VerificationStatus = status
	a.UpdatedAt = at
	return nil
}

func (m *mockAccountRepo) VerifiedIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, id := range ids {
		if a, ok := m.accounts[id]; ok && a.IsVerified() {
			out[id] = true
		}
	}
	return out, nil
}

type mockTimelineRepo struct {
	events     map[string]entity.Timeline
	appendFunc func(ctx context.Context, kind workflow.Kind, entityID string, evt event.Event) error
}

func newMockTimelineRepo() *mockTimelineRepo {
	return &mockTimelineRepo{events: make(map[string]entity.Timeline)}
}

func (m *mockTimelineRepo) Append(ctx context.Context, kind workflow.Kind, entityID string, evt event.Event) error {
	if m.appendFunc != nil {
		if err := m.appendFunc(ctx, kind, entityID, evt); err != nil {
			return err
		}
	}
	key := string(kind) + "/" + entityID
	m.events[key] = append(m.events[key], evt)
	return nil
}

func (m *mockTimelineRepo) ListByEntity(ctx context.Context, kind workflow.Kind, entityID string) (entity.Timeline, error) {
	return m.events[string(kind)+"/"+entityID].Clone(), nil
}

func (m *mockTimelineRepo) count(kind workflow.Kind, entityID string) int {
	return len(m.events[string(kind)+"/"+entityID])
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

// mockDispatcher records published envelopes
type mockDispatcher struct {
	mu        sync.Mutex
	envelopes []*event.Envelope
}

func (m *mockDispatcher) Subscribe(kind event.Kind, handler dispatcher.Handler) {}

func (m *mockDispatcher) SubscribeNamed(kind event.Kind, name string, handler dispatcher.Handler) {}

func (m *mockDispatcher) SubscribeAll(name string, handler dispatcher.Handler) {}

func (m *mockDispatcher) Dispatch(ctx context.Context, env *event.Envelope) error {
	m.DispatchAsync(ctx, env)
	return nil
}

func (m *mockDispatcher) DispatchAsync(ctx context.Context, env *event.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.envelopes = append(m.envelopes, env)
}

func (m *mockDispatcher) ListHandlers(kind event.Kind) []dispatcher.HandlerInfo { return nil }

func (m *mockDispatcher) Close() error { return nil }

func (m *mockDispatcher) published() []*event.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*event.Envelope(nil), m.envelopes...)
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

// recordingMetrics counts outcomes per label
type recordingMetrics struct {
	mu          sync.Mutex
	transitions map[string]int
	claims      map[string]int
	sweeps      map[string][2]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		transitions: make(map[string]int),
		claims:      make(map[string]int),
		sweeps:      make(map[string][2]int),
	}
}

func (r *recordingMetrics) ObserveTransition(kind workflow.Kind, to workflow.State, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions[outcome]++
}

func (r *recordingMetrics) ObserveClaim(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.claims[outcome]++
}

func (r *recordingMetrics) ObserveSweep(pass string, applied, skipped int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweeps[pass] = [2]int{applied, skipped}
}
