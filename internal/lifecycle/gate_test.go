package lifecycle

import (
	"testing"

	"github.com/spec-kit/template-studio/internal/domain"
)

func TestCanAssign(t *testing.T) {
	tpl := templateIn(domain.TemplateStatusNew, nil)
	if !CanAssign(tpl, adminActor()) {
		t.Fatal("admin must be able to assign")
	}
	if CanAssign(tpl, creatorActor("creator-1")) {
		t.Fatal("creator must not assign others")
	}

	// Admin overrides an existing assignee directly.
	tpl = templateIn(domain.TemplateStatusInProgress, strptr("creator-1"))
	if !CanAssign(tpl, adminActor()) {
		t.Fatal("admin must be able to reassign an assigned template")
	}
}

func TestCanSelfAssign(t *testing.T) {
	tests := []struct {
		name     string
		template *domain.Template
		actor    *domain.Actor
		want     bool
	}{
		{"unassigned new, creator", templateIn(domain.TemplateStatusNew, nil), creatorActor("creator-1"), true},
		{"already assigned", templateIn(domain.TemplateStatusNew, strptr("creator-2")), creatorActor("creator-1"), false},
		{"not new", templateIn(domain.TemplateStatusInProgress, nil), creatorActor("creator-1"), false},
		{"admin cannot claim", templateIn(domain.TemplateStatusNew, nil), adminActor(), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanSelfAssign(tc.template, tc.actor); got != tc.want {
				t.Fatalf("CanSelfAssign = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCanUnassign(t *testing.T) {
	assignee := creatorActor("creator-1")
	other := creatorActor("creator-2")

	tests := []struct {
		name     string
		template *domain.Template
		actor    *domain.Actor
		want     bool
	}{
		{"admin always", templateIn(domain.TemplateStatusPublished, strptr("creator-1")), adminActor(), true},
		{"assignee in progress", templateIn(domain.TemplateStatusInProgress, strptr("creator-1")), assignee, true},
		{"assignee submitted", templateIn(domain.TemplateStatusSubmitted, strptr("creator-1")), assignee, true},
		{"assignee published locked", templateIn(domain.TemplateStatusPublished, strptr("creator-1")), assignee, false},
		{"assignee reviewed locked", templateIn(domain.TemplateStatusReviewed, strptr("creator-1")), assignee, false},
		{"non-assignee", templateIn(domain.TemplateStatusInProgress, strptr("creator-1")), other, false},
		{"unassigned", templateIn(domain.TemplateStatusNew, nil), assignee, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanUnassign(tc.template, tc.actor); got != tc.want {
				t.Fatalf("CanUnassign = %v, want %v", got, tc.want)
			}
		})
	}
}
