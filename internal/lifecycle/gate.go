package lifecycle

import (
	"github.com/spec-kit/template-studio/internal/domain"
)

// CanAssign reports whether the actor may set an assignee on the template.
// Admins may assign at any time, including overwriting an existing assignee
// without unassigning first.
func CanAssign(template *domain.Template, actor *domain.Actor) bool {
	if template == nil || actor == nil {
		return false
	}
	return actor.Role == domain.RoleAdmin
}

// CanSelfAssign reports whether a creator may claim the template. This is the
// only mutation a creator performs without already being the assignee: the
// template must be unassigned and still NEW.
func CanSelfAssign(template *domain.Template, actor *domain.Actor) bool {
	if template == nil || actor == nil {
		return false
	}
	if actor.Role != domain.RoleCreator {
		return false
	}
	return template.AssignedTo == nil && template.Status == domain.TemplateStatusNew
}

// CanUnassign reports whether the actor may release the template. Admins
// always may; the current assignee may, except while the template sits in
// PUBLISHED or REVIEWED, which are locked against self-release.
func CanUnassign(template *domain.Template, actor *domain.Actor) bool {
	if template == nil || actor == nil {
		return false
	}
	if actor.Role == domain.RoleAdmin {
		return true
	}
	if template.AssignedTo == nil || *template.AssignedTo != actor.ID {
		return false
	}
	switch template.Status {
	case domain.TemplateStatusPublished, domain.TemplateStatusReviewed:
		return false
	}
	return true
}
