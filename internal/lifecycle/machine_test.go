package lifecycle

import (
	"testing"

	"github.com/spec-kit/template-studio/internal/domain"
)

func adminActor() *domain.Actor {
	return &domain.Actor{ID: "admin-1", Role: domain.RoleAdmin, Active: true}
}

func creatorActor(id string) *domain.Actor {
	return &domain.Actor{ID: id, Role: domain.RoleCreator, Active: true}
}

func templateIn(status domain.TemplateStatus, assignee *string) *domain.Template {
	return &domain.Template{
		ID:         "tpl-1",
		Status:     status,
		AssignedTo: assignee,
	}
}

func strptr(s string) *string { return &s }

func TestRequestTransitionAdmin(t *testing.T) {
	assignee := strptr("creator-1")

	tests := []struct {
		name    string
		from    domain.TemplateStatus
		to      domain.TemplateStatus
		allowed bool
	}{
		{"new to assigned", domain.TemplateStatusNew, domain.TemplateStatusAssigned, true},
		{"assigned back to new", domain.TemplateStatusAssigned, domain.TemplateStatusNew, true},
		{"in progress to submitted", domain.TemplateStatusInProgress, domain.TemplateStatusSubmitted, true},
		{"in progress to needs fixes", domain.TemplateStatusInProgress, domain.TemplateStatusNeedsFixes, true},
		{"submitted to reviewed", domain.TemplateStatusSubmitted, domain.TemplateStatusReviewed, true},
		{"submitted to needs fixes", domain.TemplateStatusSubmitted, domain.TemplateStatusNeedsFixes, true},
		{"submitted unsubmit", domain.TemplateStatusSubmitted, domain.TemplateStatusInProgress, true},
		{"needs fixes to submitted", domain.TemplateStatusNeedsFixes, domain.TemplateStatusSubmitted, true},
		{"needs fixes to in progress", domain.TemplateStatusNeedsFixes, domain.TemplateStatusInProgress, true},
		{"reviewed to needs fixes", domain.TemplateStatusReviewed, domain.TemplateStatusNeedsFixes, true},
		{"published to archived", domain.TemplateStatusPublished, domain.TemplateStatusArchived, true},
		{"archived republish", domain.TemplateStatusArchived, domain.TemplateStatusPublished, true},

		{"new straight to published", domain.TemplateStatusNew, domain.TemplateStatusPublished, false},
		{"new to in progress", domain.TemplateStatusNew, domain.TemplateStatusInProgress, false},
		{"reviewed back to submitted", domain.TemplateStatusReviewed, domain.TemplateStatusSubmitted, false},
		{"published to new", domain.TemplateStatusPublished, domain.TemplateStatusNew, false},
		{"archived to new", domain.TemplateStatusArchived, domain.TemplateStatusNew, false},
		{"in progress to reviewed", domain.TemplateStatusInProgress, domain.TemplateStatusReviewed, false},
		{"same status", domain.TemplateStatusSubmitted, domain.TemplateStatusSubmitted, false},
		{"unknown target", domain.TemplateStatusNew, domain.TemplateStatus("BOGUS"), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tpl := templateIn(tc.from, assignee)
			tpl.ArtifactPresent = true
			decision := RequestTransition(tpl, adminActor(), tc.to)
			if decision.Allowed() != tc.allowed {
				t.Fatalf("transition %s -> %s: allowed = %v, want %v", tc.from, tc.to, decision.Allowed(), tc.allowed)
			}
		})
	}
}

func TestRequestTransitionCreator(t *testing.T) {
	assignee := strptr("creator-1")
	actor := creatorActor("creator-1")

	tests := []struct {
		name    string
		from    domain.TemplateStatus
		to      domain.TemplateStatus
		allowed bool
	}{
		{"assigned to in progress", domain.TemplateStatusAssigned, domain.TemplateStatusInProgress, true},
		{"in progress to submitted", domain.TemplateStatusInProgress, domain.TemplateStatusSubmitted, true},
		{"submitted unsubmit", domain.TemplateStatusSubmitted, domain.TemplateStatusInProgress, true},
		{"needs fixes resubmit", domain.TemplateStatusNeedsFixes, domain.TemplateStatusSubmitted, true},
		{"needs fixes to in progress", domain.TemplateStatusNeedsFixes, domain.TemplateStatusInProgress, true},

		{"submitted to reviewed", domain.TemplateStatusSubmitted, domain.TemplateStatusReviewed, false},
		{"reviewed to published", domain.TemplateStatusReviewed, domain.TemplateStatusPublished, false},
		{"published to archived", domain.TemplateStatusPublished, domain.TemplateStatusArchived, false},
		{"assigned back to new", domain.TemplateStatusAssigned, domain.TemplateStatusNew, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tpl := templateIn(tc.from, assignee)
			decision := RequestTransition(tpl, actor, tc.to)
			if decision.Allowed() != tc.allowed {
				t.Fatalf("transition %s -> %s: allowed = %v, want %v", tc.from, tc.to, decision.Allowed(), tc.allowed)
			}
		})
	}
}

// TestTransitionTableExhaustive pins the whole contract: every (role, from,
// to) triple is checked, and any pair absent from the written-out matrix
// below must be denied.
func TestTransitionTableExhaustive(t *testing.T) {
	allStatuses := []domain.TemplateStatus{
		domain.TemplateStatusNew,
		domain.TemplateStatusAssigned,
		domain.TemplateStatusInProgress,
		domain.TemplateStatusSubmitted,
		domain.TemplateStatusNeedsFixes,
		domain.TemplateStatusReviewed,
		domain.TemplateStatusPublished,
		domain.TemplateStatusArchived,
	}

	legal := map[domain.ActorRole]map[domain.TemplateStatus][]domain.TemplateStatus{
		domain.RoleAdmin: {
			domain.TemplateStatusNew:        {domain.TemplateStatusAssigned},
			domain.TemplateStatusAssigned:   {domain.TemplateStatusNew},
			domain.TemplateStatusInProgress: {domain.TemplateStatusSubmitted, domain.TemplateStatusNeedsFixes},
			domain.TemplateStatusSubmitted:  {domain.TemplateStatusReviewed, domain.TemplateStatusNeedsFixes, domain.TemplateStatusInProgress},
			domain.TemplateStatusNeedsFixes: {domain.TemplateStatusSubmitted, domain.TemplateStatusInProgress},
			domain.TemplateStatusReviewed:   {domain.TemplateStatusPublished, domain.TemplateStatusNeedsFixes},
			domain.TemplateStatusPublished:  {domain.TemplateStatusArchived},
			domain.TemplateStatusArchived:   {domain.TemplateStatusPublished},
		},
		domain.RoleCreator: {
			domain.TemplateStatusAssigned:   {domain.TemplateStatusInProgress},
			domain.TemplateStatusInProgress: {domain.TemplateStatusSubmitted},
			domain.TemplateStatusSubmitted:  {domain.TemplateStatusInProgress},
			domain.TemplateStatusNeedsFixes: {domain.TemplateStatusSubmitted, domain.TemplateStatusInProgress},
		},
	}

	contains := func(set []domain.TemplateStatus, s domain.TemplateStatus) bool {
		for _, candidate := range set {
			if candidate == s {
				return true
			}
		}
		return false
	}

	actors := map[domain.ActorRole]*domain.Actor{
		domain.RoleAdmin:   adminActor(),
		domain.RoleCreator: creatorActor("creator-1"),
	}

	for role, actor := range actors {
		for _, from := range allStatuses {
			for _, to := range allStatuses {
				tpl := templateIn(from, strptr("creator-1"))
				tpl.ArtifactPresent = true
				decision := RequestTransition(tpl, actor, to)
				want := contains(legal[role][from], to)
				if decision.Allowed() != want {
					t.Errorf("%s: %s -> %s: allowed = %v, want %v", role, from, to, decision.Allowed(), want)
				}
			}
		}
	}
}

func TestCreatorNotAssigneeDenied(t *testing.T) {
	tpl := templateIn(domain.TemplateStatusInProgress, strptr("creator-1"))
	other := creatorActor("creator-2")

	if allowed := AllowedTransitions(tpl, other); len(allowed) != 0 {
		t.Fatalf("expected no transitions for non-assignee, got %v", allowed)
	}
	decision := RequestTransition(tpl, other, domain.TemplateStatusSubmitted)
	if decision.Allowed() {
		t.Fatal("non-assignee creator must not transition")
	}
	if decision.Reason != DenyTransition {
		t.Fatalf("reason = %v, want DenyTransition", decision.Reason)
	}
}

func TestPublishRequiresArtifact(t *testing.T) {
	tpl := templateIn(domain.TemplateStatusReviewed, strptr("creator-1"))
	tpl.ArtifactPresent = false

	decision := RequestTransition(tpl, adminActor(), domain.TemplateStatusPublished)
	if decision.Allowed() {
		t.Fatal("publish without artifact must be denied")
	}
	if decision.Reason != DenyMissingArtifact {
		t.Fatalf("reason = %v, want DenyMissingArtifact", decision.Reason)
	}

	tpl.ArtifactPresent = true
	decision = RequestTransition(tpl, adminActor(), domain.TemplateStatusPublished)
	if !decision.Allowed() {
		t.Fatalf("publish with artifact denied: %v", decision.Reason)
	}
	if !decision.RequiresSync {
		t.Fatal("publish must require a catalog sync")
	}
}

func TestAssignedRequiresAssignee(t *testing.T) {
	tpl := templateIn(domain.TemplateStatusNew, nil)
	decision := RequestTransition(tpl, adminActor(), domain.TemplateStatusAssigned)
	if decision.Allowed() {
		t.Fatal("move to ASSIGNED without assignee must be denied")
	}
	if decision.Reason != DenyUnassigned {
		t.Fatalf("reason = %v, want DenyUnassigned", decision.Reason)
	}
}

func TestBackToNewClearsAssignee(t *testing.T) {
	tpl := templateIn(domain.TemplateStatusAssigned, strptr("creator-1"))
	decision := RequestTransition(tpl, adminActor(), domain.TemplateStatusNew)
	if !decision.Allowed() {
		t.Fatalf("assigned -> new denied: %v", decision.Reason)
	}
	if !decision.ClearAssignee {
		t.Fatal("move back to NEW must clear the assignee")
	}
}

func TestNeedsFixesIncrementsOnlyFromSubmitted(t *testing.T) {
	tpl := templateIn(domain.TemplateStatusSubmitted, strptr("creator-1"))
	decision := RequestTransition(tpl, adminActor(), domain.TemplateStatusNeedsFixes)
	if !decision.Allowed() || !decision.IncrementFixCount {
		t.Fatal("submitted -> needs fixes must increment the fix count")
	}

	tpl = templateIn(domain.TemplateStatusReviewed, strptr("creator-1"))
	decision = RequestTransition(tpl, adminActor(), domain.TemplateStatusNeedsFixes)
	if !decision.Allowed() {
		t.Fatalf("reviewed -> needs fixes denied: %v", decision.Reason)
	}
	if decision.IncrementFixCount {
		t.Fatal("reviewed -> needs fixes must not increment the fix count")
	}
}

func TestReviewedIsBillable(t *testing.T) {
	tpl := templateIn(domain.TemplateStatusSubmitted, strptr("creator-1"))
	decision := RequestTransition(tpl, adminActor(), domain.TemplateStatusReviewed)
	if !decision.Allowed() || !decision.Billable {
		t.Fatal("submitted -> reviewed must be billable")
	}
}

func TestArchiveSyncOnlyWithCatalogRecord(t *testing.T) {
	tpl := templateIn(domain.TemplateStatusPublished, strptr("creator-1"))
	decision := RequestTransition(tpl, adminActor(), domain.TemplateStatusArchived)
	if !decision.Allowed() {
		t.Fatalf("published -> archived denied: %v", decision.Reason)
	}
	if decision.RequiresSync {
		t.Fatal("archive without a catalog record must not sync")
	}

	tpl.PublicCatalogID = strptr("cat-9")
	decision = RequestTransition(tpl, adminActor(), domain.TemplateStatusArchived)
	if !decision.RequiresSync {
		t.Fatal("archive with a catalog record must sync")
	}
}

func TestAllowedTransitionsCopies(t *testing.T) {
	tpl := templateIn(domain.TemplateStatusNeedsFixes, strptr("creator-1"))
	got := AllowedTransitions(tpl, creatorActor("creator-1"))
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	got[0] = domain.TemplateStatus("MUTATED")
	again := AllowedTransitions(tpl, creatorActor("creator-1"))
	if again[0] == domain.TemplateStatus("MUTATED") {
		t.Fatal("AllowedTransitions must return a copy of the table row")
	}
}
