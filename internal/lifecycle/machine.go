// Package lifecycle holds the pure template state machine and the
// role-based permission gate. Nothing in here performs I/O; services
// apply the returned decisions against storage and publish events.
package lifecycle

import (
	"github.com/spec-kit/template-studio/internal/domain"
)

// transitions is the single source of truth for role-gated status moves,
// keyed by (role, current status). Pairs not listed are denied.
var transitions = map[domain.ActorRole]map[domain.TemplateStatus][]domain.TemplateStatus{
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

// AllowedTransitions returns the set of statuses the actor may move the
// template to from its current status. Creators only act on templates
// assigned to them; everything not in the table is denied.
func AllowedTransitions(template *domain.Template, actor *domain.Actor) []domain.TemplateStatus {
	if template == nil || actor == nil {
		return nil
	}
	if actor.Role == domain.RoleCreator {
		if template.AssignedTo == nil || *template.AssignedTo != actor.ID {
			return nil
		}
	}
	allowed := transitions[actor.Role][template.Status]
	out := make([]domain.TemplateStatus, len(allowed))
	copy(out, allowed)
	return out
}

// DenyReason distinguishes why a transition was rejected.
type DenyReason int

const (
	DenyNone DenyReason = iota
	// DenyTransition means the (role, current, target) triple is not in the table.
	DenyTransition
	// DenyMissingArtifact means publish was requested without an uploaded artifact.
	DenyMissingArtifact
	// DenyUnassigned means the move into ASSIGNED has no assignee to attach to.
	DenyUnassigned
)

// Decision describes an accepted transition and its side effects. The caller
// commits the status change, then acts on the flags.
type Decision struct {
	From              domain.TemplateStatus
	To                domain.TemplateStatus
	IncrementFixCount bool
	ClearAssignee     bool
	Billable          bool
	RequiresSync      bool
	Reason            DenyReason
}

// Allowed reports whether the decision accepts the transition.
func (d Decision) Allowed() bool {
	return d.Reason == DenyNone
}

// RequestTransition validates targetStatus for the actor against the current
// template state and computes side effects. It never mutates the template.
func RequestTransition(template *domain.Template, actor *domain.Actor, target domain.TemplateStatus) Decision {
	decision := Decision{From: template.Status, To: target}

	legal := false
	for _, candidate := range AllowedTransitions(template, actor) {
		if candidate == target {
			legal = true
			break
		}
	}
	if !legal {
		decision.Reason = DenyTransition
		return decision
	}

	switch target {
	case domain.TemplateStatusAssigned:
		if template.AssignedTo == nil {
			decision.Reason = DenyUnassigned
			return decision
		}
	case domain.TemplateStatusPublished:
		if !template.ArtifactPresent {
			decision.Reason = DenyMissingArtifact
			return decision
		}
		decision.RequiresSync = true
	case domain.TemplateStatusArchived:
		// Archiving is always accepted locally; the external record is
		// archived in a separate, non-atomic call when one exists.
		decision.RequiresSync = template.PublicCatalogID != nil
	case domain.TemplateStatusNeedsFixes:
		decision.IncrementFixCount = template.Status == domain.TemplateStatusSubmitted
	case domain.TemplateStatusNew:
		// Moving back to NEW releases the assignee so the aggregate keeps
		// the "assigned implies non-NEW" invariant.
		decision.ClearAssignee = true
	case domain.TemplateStatusReviewed:
		decision.Billable = true
	}

	return decision
}
