// Package access resolves a caller's role relative to an organization, project or task.
//
// Roles are closed, mutually exclusive tags. Owner is always checked first, so a user
// who is both the organization owner and a task's assignee resolves as TaskOwner.
package access

import (
	"context"
	"errors"
	"fmt"

	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/models"
)

// OrgRole is the caller's role for an organization and everything scoped by it (projects).
type OrgRole int

const (
	OrgNone OrgRole = iota
	OrgMember
	OrgOwner
)

func (r OrgRole) String() string {
	switch r {
	case OrgOwner:
		return "OWNER"
	case OrgMember:
		return "MEMBER"
	default:
		return "NONE"
	}
}

// CanView reports whether the role grants project-level access (OWNER or MEMBER).
func (r OrgRole) CanView() bool {
	return r == OrgOwner || r == OrgMember
}

// TaskRole is the caller's role for a single task.
type TaskRole int

const (
	TaskNone TaskRole = iota
	TaskAssignee
	TaskOwner
)

func (r TaskRole) String() string {
	switch r {
	case TaskOwner:
		return "OWNER"
	case TaskAssignee:
		return "ASSIGNEE"
	default:
		return "NONE"
	}
}

// Store is the read-only slice of the database the resolver needs.
type Store interface {
	GetOrganization(ctx context.Context, id string) (*models.Organization, error)
	GetMembership(ctx context.Context, userID, orgID string) (*models.Membership, error)
	GetProject(ctx context.Context, id string) (*models.Project, error)
}

// Resolver computes roles with plain lookups and no side effects. Missing
// references resolve to the None role; only unexpected store failures are returned
// as errors.
type Resolver struct {
	store Store
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// OrgRole returns OrgOwner if the user owns org, OrgMember if a membership row
// exists, and OrgNone otherwise.
func (r *Resolver) OrgRole(ctx context.Context, userID string, org *models.Organization) (OrgRole, error) {
	if org == nil || userID == "" {
		return OrgNone, nil
	}
	if org.OwnerID == userID {
		return OrgOwner, nil
	}
	_, err := r.store.GetMembership(ctx, userID, org.ID)
	switch {
	case err == nil:
		return OrgMember, nil
	case errors.Is(err, database.ErrNotFound):
		return OrgNone, nil
	default:
		return OrgNone, fmt.Errorf("resolve membership: %w", err)
	}
}

// OrgRoleByID loads the organization first. An unknown organization yields OrgNone.
func (r *Resolver) OrgRoleByID(ctx context.Context, userID, orgID string) (OrgRole, error) {
	org, err := r.store.GetOrganization(ctx, orgID)
	if errors.Is(err, database.ErrNotFound) {
		return OrgNone, nil
	}
	if err != nil {
		return OrgNone, fmt.Errorf("resolve organization: %w", err)
	}
	return r.OrgRole(ctx, userID, org)
}

// ProjectRole delegates to the role on the project's organization.
func (r *Resolver) ProjectRole(ctx context.Context, userID string, project *models.Project) (OrgRole, error) {
	if project == nil {
		return OrgNone, nil
	}
	return r.OrgRoleByID(ctx, userID, project.OrganizationID)
}

// TaskRole returns TaskOwner when the user owns the organization of the task's
// project, checked before assignment; TaskAssignee when the user is the assignee;
// TaskNone otherwise.
func (r *Resolver) TaskRole(ctx context.Context, userID string, task *models.Task) (TaskRole, error) {
	if task == nil || userID == "" {
		return TaskNone, nil
	}
	owner, err := r.isTaskOwner(ctx, userID, task)
	if err != nil {
		return TaskNone, err
	}
	if owner {
		return TaskOwner, nil
	}
	if task.AssigneeID == userID {
		return TaskAssignee, nil
	}
	return TaskNone, nil
}

func (r *Resolver) isTaskOwner(ctx context.Context, userID string, task *models.Task) (bool, error) {
	project, err := r.store.GetProject(ctx, task.ProjectID)
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("resolve task project: %w", err)
	}
	org, err := r.store.GetOrganization(ctx, project.OrganizationID)
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("resolve task organization: %w", err)
	}
	return org.OwnerID == userID, nil
}
