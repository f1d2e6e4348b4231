package service

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/template-studio/internal/domain"
	"github.com/spec-kit/template-studio/internal/events"
	apperrors "github.com/spec-kit/template-studio/pkg/util/errorutil"
)

type templateFixture struct {
	templates  *fakeTemplateRepo
	artifacts  *fakeArtifactRepo
	history    *fakeHistoryRepo
	ledger     *fakeLedgerRepo
	publisher  *fakePublisher
	dispatcher *recordingDispatcher
	service    *TemplateService
	admin      *domain.Actor
	creator    *domain.Actor
}

func newTemplateFixture(t *testing.T) *templateFixture {
	t.Helper()

	templates := newFakeTemplateRepo()
	artifacts := &fakeArtifactRepo{}
	history := &fakeHistoryRepo{}
	ledgerRepo := newFakeLedgerRepo()
	publisher := &fakePublisher{}
	dispatcher := &recordingDispatcher{}

	admin := &domain.Actor{ID: "admin-1", Role: domain.RoleAdmin, Active: true}
	creator := &domain.Actor{ID: "creator-1", Role: domain.RoleCreator, Active: true}
	actors := newFakeActorRepo(*admin, *creator)

	ledger := NewLedgerService(ledgerRepo, actors)
	syncer := NewSyncService(publisher, templates, history, dispatcher, zap.NewNop())
	svc := NewTemplateService(TemplateDependencies{
		TemplateRepo:   templates,
		ArtifactRepo:   artifacts,
		DepartmentRepo: newFakeDepartmentRepo(domain.Department{ID: "dept-1", Name: "Operations", IsActive: true}),
		HistoryRepo:    history,
		Ledger:         ledger,
		Syncer:         syncer,
		Dispatcher:     dispatcher,
	})

	return &templateFixture{
		templates:  templates,
		artifacts:  artifacts,
		history:    history,
		ledger:     ledgerRepo,
		publisher:  publisher,
		dispatcher: dispatcher,
		service:    svc,
		admin:      admin,
		creator:    creator,
	}
}

func (f *templateFixture) seed(t *testing.T, status domain.TemplateStatus, assignee *string, mutate func(*domain.Template)) *domain.Template {
	t.Helper()
	template := &domain.Template{
		Title:      "Onboarding flow",
		Status:     status,
		AssignedTo: assignee,
		CreatedBy:  f.admin.ID,
		PriceCents: 1000,
		SyncState:  domain.SyncStateNeverPublished,
	}
	if mutate != nil {
		mutate(template)
	}
	if err := f.templates.Create(context.Background(), template); err != nil {
		t.Fatalf("seed template: %v", err)
	}
	return template
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	return apperrors.ToDomainError(err).Code
}

func TestCreateTemplateEmitsEvent(t *testing.T) {
	f := newTemplateFixture(t)

	template, err := f.service.CreateTemplate(context.Background(), f.admin, TemplateCreateInput{
		Title:         "Invoice approval",
		DepartmentIDs: []string{"dept-1"},
		PriceCents:    2500,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if template.Status != domain.TemplateStatusNew {
		t.Fatalf("status = %s, want NEW", template.Status)
	}
	if template.SyncState != domain.SyncStateNeverPublished {
		t.Fatalf("sync state = %s, want NEVER_PUBLISHED", template.SyncState)
	}

	created := f.dispatcher.byType(events.EventTemplateCreated)
	if len(created) != 1 {
		t.Fatalf("created events = %d, want 1", len(created))
	}
	if created[0].TemplateID != template.ID {
		t.Fatal("event must carry the template id")
	}
}

func TestCreateTemplateRejectsUnknownDepartment(t *testing.T) {
	f := newTemplateFixture(t)

	_, err := f.service.CreateTemplate(context.Background(), f.admin, TemplateCreateInput{
		Title:         "Bad dept",
		DepartmentIDs: []string{"dept-missing"},
	})
	if code := errCode(t, err); code != "VALIDATION_FAILED" {
		t.Fatalf("code = %s, want VALIDATION_FAILED", code)
	}
}

func TestListTemplatesScopesCreators(t *testing.T) {
	f := newTemplateFixture(t)
	other := "creator-2"
	f.seed(t, domain.TemplateStatusNew, nil, nil)
	f.seed(t, domain.TemplateStatusInProgress, &f.creator.ID, nil)
	f.seed(t, domain.TemplateStatusInProgress, &other, nil)

	all, err := f.service.ListTemplates(context.Background(), f.admin, TemplateListFilter{})
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("admin sees %d, want 3", len(all))
	}

	mine, err := f.service.ListTemplates(context.Background(), f.creator, TemplateListFilter{})
	if err != nil {
		t.Fatalf("creator list: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("creator sees %d, want 2 (unassigned + own)", len(mine))
	}
}

func TestPublishHappyPath(t *testing.T) {
	f := newTemplateFixture(t)
	template := f.seed(t, domain.TemplateStatusReviewed, &f.creator.ID, func(tpl *domain.Template) {
		tpl.ArtifactPresent = true
		tpl.DepartmentIDs = []string{"dept-1"}
	})

	got, err := f.service.UpdateStatus(context.Background(), f.admin, template.ID, domain.TemplateStatusPublished)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got.Status != domain.TemplateStatusPublished {
		t.Fatalf("status = %s", got.Status)
	}
	if got.SyncState != domain.SyncStateSynced {
		t.Fatalf("sync state = %s, want SYNCED", got.SyncState)
	}
	if got.PublicCatalogID == nil {
		t.Fatal("publish must record the remote catalog id")
	}
	if f.publisher.publishCalls != 1 {
		t.Fatalf("publish calls = %d, want 1", f.publisher.publishCalls)
	}

	// One update for the status commit, one for the sync outcome.
	updates := f.dispatcher.byType(events.EventTemplateUpdated)
	if len(updates) != 2 {
		t.Fatalf("updated events = %d, want 2", len(updates))
	}
}

func TestPublishWithoutArtifact(t *testing.T) {
	f := newTemplateFixture(t)
	template := f.seed(t, domain.TemplateStatusReviewed, &f.creator.ID, func(tpl *domain.Template) {
		tpl.DepartmentIDs = []string{"dept-1"}
	})

	_, err := f.service.UpdateStatus(context.Background(), f.admin, template.ID, domain.TemplateStatusPublished)
	if code := errCode(t, err); code != "MISSING_ARTIFACT" {
		t.Fatalf("code = %s, want MISSING_ARTIFACT", code)
	}
	if f.publisher.publishCalls != 0 {
		t.Fatal("catalog must not be called on a denied publish")
	}
}

func TestPublishCatalogFailureDrifts(t *testing.T) {
	f := newTemplateFixture(t)
	f.publisher.failNext = errCatalogDown
	template := f.seed(t, domain.TemplateStatusReviewed, &f.creator.ID, func(tpl *domain.Template) {
		tpl.ArtifactPresent = true
		tpl.DepartmentIDs = []string{"dept-1"}
	})

	got, err := f.service.UpdateStatus(context.Background(), f.admin, template.ID, domain.TemplateStatusPublished)
	if code := errCode(t, err); code != "EXTERNAL_SYNC_FAILED" {
		t.Fatalf("code = %s, want EXTERNAL_SYNC_FAILED", code)
	}
	// Local transition stays committed.
	if got == nil || got.Status != domain.TemplateStatusPublished {
		t.Fatal("local publish must stay committed on catalog failure")
	}

	stored, storeErr := f.templates.GetByID(context.Background(), template.ID)
	if storeErr != nil {
		t.Fatalf("reload: %v", storeErr)
	}
	if stored.Status != domain.TemplateStatusPublished {
		t.Fatalf("stored status = %s, want PUBLISHED", stored.Status)
	}
	if stored.SyncState != domain.SyncStateDrifted {
		t.Fatalf("stored sync state = %s, want DRIFTED", stored.SyncState)
	}
}

func TestResyncAfterDrift(t *testing.T) {
	f := newTemplateFixture(t)
	f.publisher.failNext = errCatalogDown
	template := f.seed(t, domain.TemplateStatusReviewed, &f.creator.ID, func(tpl *domain.Template) {
		tpl.ArtifactPresent = true
		tpl.DepartmentIDs = []string{"dept-1"}
	})

	drifted, _ := f.service.UpdateStatus(context.Background(), f.admin, template.ID, domain.TemplateStatusPublished)
	if drifted.SyncState != domain.SyncStateDrifted {
		t.Fatalf("sync state = %s, want DRIFTED", drifted.SyncState)
	}

	resynced, err := f.service.syncer.Resync(context.Background(), f.admin, drifted)
	if err != nil {
		t.Fatalf("resync: %v", err)
	}
	if resynced.SyncState != domain.SyncStateSynced {
		t.Fatalf("sync state = %s, want SYNCED", resynced.SyncState)
	}
	if resynced.PublicCatalogID == nil {
		t.Fatal("resync must record the remote id")
	}
}

func TestCreatorNotAssigneeGetsPermissionDenied(t *testing.T) {
	f := newTemplateFixture(t)
	other := "creator-2"
	template := f.seed(t, domain.TemplateStatusInProgress, &other, nil)

	_, err := f.service.UpdateStatus(context.Background(), f.creator, template.ID, domain.TemplateStatusSubmitted)
	if code := errCode(t, err); code != "PERMISSION_DENIED" {
		t.Fatalf("code = %s, want PERMISSION_DENIED", code)
	}
	if len(f.dispatcher.published()) != 0 {
		t.Fatal("denied transition must not publish events")
	}
}

func TestIllegalTransitionDenied(t *testing.T) {
	f := newTemplateFixture(t)
	template := f.seed(t, domain.TemplateStatusNew, nil, nil)

	_, err := f.service.UpdateStatus(context.Background(), f.admin, template.ID, domain.TemplateStatusPublished)
	if code := errCode(t, err); code != "TRANSITION_DENIED" {
		t.Fatalf("code = %s, want TRANSITION_DENIED", code)
	}
}

func TestNeedsFixesRoundTripIncrementsOnce(t *testing.T) {
	f := newTemplateFixture(t)
	template := f.seed(t, domain.TemplateStatusSubmitted, &f.creator.ID, nil)

	got, err := f.service.UpdateStatus(context.Background(), f.admin, template.ID, domain.TemplateStatusNeedsFixes)
	if err != nil {
		t.Fatalf("needs fixes: %v", err)
	}
	if got.FixCount != 1 {
		t.Fatalf("fix count = %d, want 1", got.FixCount)
	}

	got, err = f.service.UpdateStatus(context.Background(), f.creator, template.ID, domain.TemplateStatusSubmitted)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if got.FixCount != 1 {
		t.Fatalf("fix count after resubmit = %d, want 1", got.FixCount)
	}

	got, err = f.service.UpdateStatus(context.Background(), f.admin, template.ID, domain.TemplateStatusNeedsFixes)
	if err != nil {
		t.Fatalf("second round: %v", err)
	}
	if got.FixCount != 2 {
		t.Fatalf("fix count = %d, want 2", got.FixCount)
	}
}

func TestReviewedAccruesPendingItemOnce(t *testing.T) {
	f := newTemplateFixture(t)
	template := f.seed(t, domain.TemplateStatusSubmitted, &f.creator.ID, nil)

	if _, err := f.service.UpdateStatus(context.Background(), f.admin, template.ID, domain.TemplateStatusReviewed); err != nil {
		t.Fatalf("review: %v", err)
	}
	pending, err := f.ledger.ListPendingByPayee(context.Background(), f.creator.ID)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	if pending[0].AmountCents != 1000 {
		t.Fatalf("amount = %d, want the template price", pending[0].AmountCents)
	}

	// Bounce out and back into REVIEWED: no second accrual while pending.
	if _, err := f.service.UpdateStatus(context.Background(), f.admin, template.ID, domain.TemplateStatusNeedsFixes); err != nil {
		t.Fatalf("needs fixes: %v", err)
	}
	if _, err := f.service.UpdateStatus(context.Background(), f.creator, template.ID, domain.TemplateStatusSubmitted); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if _, err := f.service.UpdateStatus(context.Background(), f.admin, template.ID, domain.TemplateStatusReviewed); err != nil {
		t.Fatalf("re-review: %v", err)
	}

	pending, _ = f.ledger.ListPendingByPayee(context.Background(), f.creator.ID)
	if len(pending) != 1 {
		t.Fatalf("pending after re-review = %d, want 1", len(pending))
	}
}

func TestRegisterArtifactRequiresAssigneeOrAdmin(t *testing.T) {
	f := newTemplateFixture(t)
	other := "creator-2"
	template := f.seed(t, domain.TemplateStatusInProgress, &other, nil)

	_, err := f.service.RegisterArtifact(context.Background(), f.creator, template.ID, ArtifactInput{StorageKey: "s3://flows/a"})
	if code := errCode(t, err); code != "PERMISSION_DENIED" {
		t.Fatalf("code = %s, want PERMISSION_DENIED", code)
	}

	artifact, err := f.service.RegisterArtifact(context.Background(), f.admin, template.ID, ArtifactInput{StorageKey: "s3://flows/a"})
	if err != nil {
		t.Fatalf("admin register: %v", err)
	}
	if artifact.ID == "" {
		t.Fatal("artifact must be persisted")
	}
}

func TestDeleteTemplateAdminOnly(t *testing.T) {
	f := newTemplateFixture(t)
	template := f.seed(t, domain.TemplateStatusNew, nil, nil)

	if err := f.service.DeleteTemplate(context.Background(), f.creator, template.ID); err == nil {
		t.Fatal("creator delete must fail")
	}
	if err := f.service.DeleteTemplate(context.Background(), f.admin, template.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}

	deleted := f.dispatcher.byType(events.EventTemplateDeleted)
	if len(deleted) != 1 || deleted[0].TemplateID != template.ID {
		t.Fatalf("deleted events = %v", deleted)
	}
}

func TestDeleteTemplateKeepsLedgerLines(t *testing.T) {
	f := newTemplateFixture(t)
	template := f.seed(t, domain.TemplateStatusSubmitted, &f.creator.ID, nil)

	if _, err := f.service.UpdateStatus(context.Background(), f.admin, template.ID, domain.TemplateStatusReviewed); err != nil {
		t.Fatalf("review: %v", err)
	}
	if err := f.service.DeleteTemplate(context.Background(), f.admin, template.ID); err != nil {
		t.Fatalf("delete after accrual: %v", err)
	}

	// The accrued line outlives the template; earnings are not erased by a
	// template deletion.
	pending, err := f.ledger.ListPendingByPayee(context.Background(), f.creator.ID)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].AmountCents != 1000 {
		t.Fatalf("pending after delete = %+v, want the accrued 1000 line", pending)
	}
}

func TestStatusChangeRecordsHistory(t *testing.T) {
	f := newTemplateFixture(t)
	template := f.seed(t, domain.TemplateStatusInProgress, &f.creator.ID, nil)

	if _, err := f.service.UpdateStatus(context.Background(), f.creator, template.ID, domain.TemplateStatusSubmitted); err != nil {
		t.Fatalf("submit: %v", err)
	}

	entries, err := f.service.ListHistory(context.Background(), f.admin, template.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("history entries = %d, want 1", len(entries))
	}
	if entries[0].ChangeType != domain.ChangeTypeStatus {
		t.Fatalf("change type = %s", entries[0].ChangeType)
	}
	if entries[0].NewValue["status"] != domain.TemplateStatusSubmitted {
		t.Fatalf("new value = %v", entries[0].NewValue)
	}
}
