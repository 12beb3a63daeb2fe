package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"taskboard-backend/pkg/access"
	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/models"
)

// ProjectService gates project CRUD on the caller's organization role.
//
// Creating a project requires OWNER. Reading, renaming and deleting an existing
// project require OWNER or MEMBER.
type ProjectService struct {
	db       database.DatabaseInterface
	resolver *access.Resolver
}

func NewProjectService(db database.DatabaseInterface, resolver *access.Resolver) *ProjectService {
	return &ProjectService{db: db, resolver: resolver}
}

// Create adds a project to organizationID. Only the organization owner may do this.
func (s *ProjectService) Create(ctx context.Context, organizationID, name, userID string) (*models.Project, error) {
	role, err := s.resolver.OrgRoleByID(ctx, userID, organizationID)
	if err != nil {
		return nil, err
	}
	if role != access.OrgOwner {
		return nil, forbidden("Cannot create projects for this organization")
	}

	project := &models.Project{OrganizationID: organizationID, Name: name}
	if err := s.db.CreateProject(ctx, project); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, notFound("Organization not found")
		}
		return nil, fmt.Errorf("create project: %w", err)
	}
	return project, nil
}

// FindAll lists every project in the organization for its owner or members.
func (s *ProjectService) FindAll(ctx context.Context, organizationID, userID string) ([]models.Project, error) {
	role, err := s.resolver.OrgRoleByID(ctx, userID, organizationID)
	if err != nil {
		return nil, err
	}
	if !role.CanView() {
		return nil, forbidden("Cannot see projects for this organization")
	}
	projects, err := s.db.ListProjectsByOrganization(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// FindOne returns the project if the caller is an owner or member of its organization.
func (s *ProjectService) FindOne(ctx context.Context, id, userID string) (*models.Project, error) {
	project, err := s.db.GetProject(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, notFound("Project not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}

	role, err := s.resolver.ProjectRole(ctx, userID, project)
	if err != nil {
		return nil, err
	}
	if !role.CanView() {
		return nil, forbidden("Cannot check this project")
	}
	return project, nil
}

// Update renames the project. Members may do this as well as the owner.
func (s *ProjectService) Update(ctx context.Context, id, name, userID string) (*models.Project, error) {
	project, err := s.FindOne(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, validationError("Name must be provided")
	}
	project.Name = name
	if err := s.db.UpdateProject(ctx, project); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, notFound("Project not found")
		}
		return nil, fmt.Errorf("update project: %w", err)
	}
	return project, nil
}

// Remove deletes the project and its tasks. Members may do this as well as the owner.
func (s *ProjectService) Remove(ctx context.Context, id, userID string) error {
	if _, err := s.FindOne(ctx, id, userID); err != nil {
		return err
	}
	n, err := s.db.DeleteProject(ctx, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n == 0 {
		return notFound("Project not found")
	}
	return nil
}
