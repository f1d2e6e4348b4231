package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/template-studio/internal/domain"
	"github.com/spec-kit/template-studio/internal/events"
	"github.com/spec-kit/template-studio/internal/repository"
)

// In-memory stand-ins for the pgx repositories. They enforce the same
// sentinel error contracts the SQL implementations do.

type fakeTemplateRepo struct {
	mu    sync.Mutex
	seq   int
	items map[string]domain.Template
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{items: make(map[string]domain.Template)}
}

func (r *fakeTemplateRepo) Create(_ context.Context, template *domain.Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if template.ID == "" {
		r.seq++
		template.ID = fmt.Sprintf("tpl-%d", r.seq)
	}
	now := time.Now()
	template.CreatedAt = now
	template.UpdatedAt = now
	r.items[template.ID] = *template
	return nil
}

func (r *fakeTemplateRepo) Update(_ context.Context, template *domain.Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[template.ID]; !ok {
		return pgx.ErrNoRows
	}
	template.UpdatedAt = time.Now()
	r.items[template.ID] = *template
	return nil
}

func (r *fakeTemplateRepo) GetByID(_ context.Context, id string) (*domain.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := item
	return &copied, nil
}

func (r *fakeTemplateRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.items, id)
	return nil
}

func (r *fakeTemplateRepo) ListWithFilter(_ context.Context, filter repository.TemplateFilter) ([]domain.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Template
	for _, item := range r.items {
		if filter.VisibleToCreator != nil {
			if item.AssignedTo != nil && *item.AssignedTo != *filter.VisibleToCreator {
				continue
			}
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, s := range filter.Statuses {
				if item.Status == s {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, item)
	}
	return out, nil
}

type fakeActorRepo struct {
	actors map[string]domain.Actor
}

func newFakeActorRepo(actors ...domain.Actor) *fakeActorRepo {
	repo := &fakeActorRepo{actors: make(map[string]domain.Actor)}
	for _, a := range actors {
		repo.actors[a.ID] = a
	}
	return repo
}

func (r *fakeActorRepo) GetByID(_ context.Context, id string) (*domain.Actor, error) {
	actor, ok := r.actors[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := actor
	return &copied, nil
}

type fakeDepartmentRepo struct {
	departments map[string]domain.Department
}

func newFakeDepartmentRepo(departments ...domain.Department) *fakeDepartmentRepo {
	repo := &fakeDepartmentRepo{departments: make(map[string]domain.Department)}
	for _, d := range departments {
		repo.departments[d.ID] = d
	}
	return repo
}

func (r *fakeDepartmentRepo) GetByID(_ context.Context, id string) (*domain.Department, error) {
	dept, ok := r.departments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := dept
	return &copied, nil
}

func (r *fakeDepartmentRepo) ListActive(_ context.Context) ([]domain.Department, error) {
	var out []domain.Department
	for _, d := range r.departments {
		if d.IsActive {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeArtifactRepo struct {
	seq       int
	artifacts []domain.FlowArtifact
}

func (r *fakeArtifactRepo) Create(_ context.Context, artifact *domain.FlowArtifact) error {
	r.seq++
	artifact.ID = fmt.Sprintf("art-%d", r.seq)
	artifact.CreatedAt = time.Now()
	r.artifacts = append(r.artifacts, *artifact)
	return nil
}

func (r *fakeArtifactRepo) ListByTemplate(_ context.Context, templateID string) ([]domain.FlowArtifact, error) {
	var out []domain.FlowArtifact
	for _, a := range r.artifacts {
		if a.TemplateID == templateID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeArtifactRepo) ExistsForTemplate(_ context.Context, templateID string) (bool, error) {
	for _, a := range r.artifacts {
		if a.TemplateID == templateID {
			return true, nil
		}
	}
	return false, nil
}

type fakeHistoryRepo struct {
	entries []domain.TemplateHistory
}

func (r *fakeHistoryRepo) Create(_ context.Context, history *domain.TemplateHistory) error {
	history.ID = fmt.Sprintf("hist-%d", len(r.entries)+1)
	history.CreatedAt = time.Now()
	r.entries = append(r.entries, *history)
	return nil
}

func (r *fakeHistoryRepo) ListByTemplate(_ context.Context, templateID string) ([]domain.TemplateHistory, error) {
	var out []domain.TemplateHistory
	for _, e := range r.entries {
		if e.TemplateID == templateID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeLedgerRepo struct {
	mu       sync.Mutex
	itemSeq  int
	invSeq   int
	items    map[string]domain.InvoiceItem
	invoices map[string]domain.Invoice
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{
		items:    make(map[string]domain.InvoiceItem),
		invoices: make(map[string]domain.Invoice),
	}
}

func (r *fakeLedgerRepo) CreatePendingItem(_ context.Context, item *domain.InvoiceItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item.TemplateID != nil {
		for _, existing := range r.items {
			if existing.State == domain.ItemStatePending && existing.TemplateID != nil && *existing.TemplateID == *item.TemplateID {
				return repository.ErrDuplicatePending
			}
		}
	}
	r.itemSeq++
	item.ID = fmt.Sprintf("item-%d", r.itemSeq)
	item.State = domain.ItemStatePending
	item.CreatedAt = time.Now()
	r.items[item.ID] = *item
	return nil
}

func (r *fakeLedgerRepo) ActivePendingForTemplate(_ context.Context, templateID string) (*domain.InvoiceItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.State == domain.ItemStatePending && item.TemplateID != nil && *item.TemplateID == templateID {
			copied := item
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeLedgerRepo) ListPendingByPayee(_ context.Context, payeeID string) ([]domain.InvoiceItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.InvoiceItem
	for _, item := range r.items {
		if item.State == domain.ItemStatePending && item.PayeeID == payeeID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) ListItemsByInvoice(_ context.Context, invoiceID string) ([]domain.InvoiceItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.InvoiceItem
	for _, item := range r.items {
		member := (item.InvoiceID != nil && *item.InvoiceID == invoiceID) ||
			(item.RevertedInvoiceID != nil && *item.RevertedInvoiceID == invoiceID)
		if member {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) GetInvoice(_ context.Context, id string) (*domain.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	invoice, ok := r.invoices[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := invoice
	return &copied, nil
}

func (r *fakeLedgerRepo) ListInvoicesByPayee(_ context.Context, payeeID string) ([]domain.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Invoice
	for _, invoice := range r.invoices {
		if invoice.PayeeID == payeeID {
			out = append(out, invoice)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) GenerateInvoice(_ context.Context, payeeID string, periodEnd time.Time) (*domain.Invoice, []domain.InvoiceItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pending []string
	var total int64
	for id, item := range r.items {
		if item.State == domain.ItemStatePending && item.PayeeID == payeeID {
			pending = append(pending, id)
			total += item.AmountCents
		}
	}
	if len(pending) == 0 {
		return nil, nil, repository.ErrNoPendingItems
	}

	r.invSeq++
	invoice := domain.Invoice{
		ID:         fmt.Sprintf("inv-%d", r.invSeq),
		PayeeID:    payeeID,
		PeriodEnd:  periodEnd,
		TotalCents: total,
		CreatedAt:  time.Now(),
	}
	r.invoices[invoice.ID] = invoice

	var snapshot []domain.InvoiceItem
	for _, id := range pending {
		item := r.items[id]
		item.State = domain.ItemStateInvoiced
		invoiceID := invoice.ID
		item.InvoiceID = &invoiceID
		r.items[id] = item
		snapshot = append(snapshot, item)
	}
	return &invoice, snapshot, nil
}

func (r *fakeLedgerRepo) RevertInvoice(_ context.Context, invoiceID string) (*domain.Invoice, []domain.InvoiceItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	invoice, ok := r.invoices[invoiceID]
	if !ok {
		return nil, nil, pgx.ErrNoRows
	}
	if invoice.Reverted {
		return nil, nil, repository.ErrInvoiceReverted
	}

	now := time.Now()
	invoice.Reverted = true
	invoice.RevertedAt = &now
	r.invoices[invoiceID] = invoice

	var released []domain.InvoiceItem
	for id, item := range r.items {
		if item.InvoiceID == nil || *item.InvoiceID != invoiceID {
			continue
		}
		// An item whose template re-accrued a pending line stays on the
		// reverted invoice; one active pending line per template.
		if item.TemplateID != nil && r.hasOtherPending(*item.TemplateID, id) {
			continue
		}
		revertedID := invoiceID
		item.State = domain.ItemStatePending
		item.InvoiceID = nil
		item.RevertedInvoiceID = &revertedID
		r.items[id] = item
		released = append(released, item)
	}
	return &invoice, released, nil
}

func (r *fakeLedgerRepo) hasOtherPending(templateID, excludeItemID string) bool {
	for id, item := range r.items {
		if id == excludeItemID {
			continue
		}
		if item.State == domain.ItemStatePending && item.TemplateID != nil && *item.TemplateID == templateID {
			return true
		}
	}
	return false
}

type fakeBlockerRepo struct {
	seq      int
	blockers map[string]domain.Blocker
}

func newFakeBlockerRepo() *fakeBlockerRepo {
	return &fakeBlockerRepo{blockers: make(map[string]domain.Blocker)}
}

func (r *fakeBlockerRepo) Create(_ context.Context, blocker *domain.Blocker) error {
	r.seq++
	blocker.ID = fmt.Sprintf("blk-%d", r.seq)
	blocker.CreatedAt = time.Now()
	blocker.UpdatedAt = blocker.CreatedAt
	r.blockers[blocker.ID] = *blocker
	return nil
}

func (r *fakeBlockerRepo) Update(_ context.Context, blocker *domain.Blocker) error {
	if _, ok := r.blockers[blocker.ID]; !ok {
		return pgx.ErrNoRows
	}
	blocker.UpdatedAt = time.Now()
	r.blockers[blocker.ID] = *blocker
	return nil
}

func (r *fakeBlockerRepo) GetByID(_ context.Context, id string) (*domain.Blocker, error) {
	blocker, ok := r.blockers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := blocker
	return &copied, nil
}

func (r *fakeBlockerRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.blockers[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.blockers, id)
	return nil
}

func (r *fakeBlockerRepo) ListByTemplate(_ context.Context, templateID string) ([]domain.Blocker, error) {
	var out []domain.Blocker
	for _, b := range r.blockers {
		if b.TemplateID == templateID {
			out = append(out, b)
		}
	}
	return out, nil
}

type fakeDiscussionRepo struct {
	seq      int
	messages []domain.DiscussionMessage
}

func (r *fakeDiscussionRepo) Create(_ context.Context, message *domain.DiscussionMessage) error {
	r.seq++
	message.ID = fmt.Sprintf("msg-%d", r.seq)
	message.CreatedAt = time.Now()
	r.messages = append(r.messages, *message)
	return nil
}

func (r *fakeDiscussionRepo) ListByBlocker(_ context.Context, blockerID string) ([]domain.DiscussionMessage, error) {
	var out []domain.DiscussionMessage
	for _, m := range r.messages {
		if m.BlockerID == blockerID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeSuggestionRepo struct {
	seq         int
	suggestions map[string]domain.Suggestion
}

func newFakeSuggestionRepo() *fakeSuggestionRepo {
	return &fakeSuggestionRepo{suggestions: make(map[string]domain.Suggestion)}
}

func (r *fakeSuggestionRepo) Create(_ context.Context, suggestion *domain.Suggestion) error {
	r.seq++
	suggestion.ID = fmt.Sprintf("sug-%d", r.seq)
	suggestion.CreatedAt = time.Now()
	suggestion.UpdatedAt = suggestion.CreatedAt
	r.suggestions[suggestion.ID] = *suggestion
	return nil
}

func (r *fakeSuggestionRepo) Update(_ context.Context, suggestion *domain.Suggestion) error {
	if _, ok := r.suggestions[suggestion.ID]; !ok {
		return pgx.ErrNoRows
	}
	suggestion.UpdatedAt = time.Now()
	r.suggestions[suggestion.ID] = *suggestion
	return nil
}

func (r *fakeSuggestionRepo) GetByID(_ context.Context, id string) (*domain.Suggestion, error) {
	suggestion, ok := r.suggestions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := suggestion
	return &copied, nil
}

func (r *fakeSuggestionRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.suggestions[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.suggestions, id)
	return nil
}

func (r *fakeSuggestionRepo) ListByTemplate(_ context.Context, templateID string) ([]domain.Suggestion, error) {
	var out []domain.Suggestion
	for _, s := range r.suggestions {
		if s.TemplateID == templateID {
			out = append(out, s)
		}
	}
	return out, nil
}

// recordingDispatcher captures published events for assertions.
type recordingDispatcher struct {
	mu       sync.Mutex
	events   []events.Event
	handlers []events.EventHandler
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	d.events = append(d.events, event)
	handlers := append([]events.EventHandler{}, d.handlers...)
	d.mu.Unlock()
	for _, h := range handlers {
		_ = h(ctx, event)
	}
	return nil
}

func (d *recordingDispatcher) Subscribe(_ events.EventType, _ events.EventHandler) {}

func (d *recordingDispatcher) SubscribeAll(handler events.EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, handler)
}

func (d *recordingDispatcher) published() []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]events.Event{}, d.events...)
}

func (d *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	var out []events.Event
	for _, e := range d.published() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// fakePublisher stands in for the catalog adapter.
type fakePublisher struct {
	publishCalls int
	updateCalls  int
	deleteCalls  int
	failNext     error
	remoteSeq    int
}

func (p *fakePublisher) Publish(_ context.Context, _ *domain.Template) (string, error) {
	p.publishCalls++
	if p.failNext != nil {
		err := p.failNext
		p.failNext = nil
		return "", err
	}
	p.remoteSeq++
	return fmt.Sprintf("cat-%d", p.remoteSeq), nil
}

func (p *fakePublisher) Update(_ context.Context, _ string, _ *domain.Template) error {
	p.updateCalls++
	if p.failNext != nil {
		err := p.failNext
		p.failNext = nil
		return err
	}
	return nil
}

func (p *fakePublisher) Delete(_ context.Context, _ string) error {
	p.deleteCalls++
	if p.failNext != nil {
		err := p.failNext
		p.failNext = nil
		return err
	}
	return nil
}

var errCatalogDown = errors.New("catalog unreachable")
