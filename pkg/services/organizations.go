package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/models"
)

// OrganizationService owns organization records. Every lookup except Create is
// scoped to the owner, and a non-owner gets NotFound even when the organization
// exists.
type OrganizationService struct {
	db database.DatabaseInterface
}

func NewOrganizationService(db database.DatabaseInterface) *OrganizationService {
	return &OrganizationService{db: db}
}

// Create stores a new organization owned by ownerID. Names need not be unique.
func (s *OrganizationService) Create(ctx context.Context, name, ownerID string) (*models.Organization, error) {
	if strings.TrimSpace(name) == "" {
		return nil, validationError("Name must be provided")
	}
	org := &models.Organization{Name: name, OwnerID: ownerID}
	if err := s.db.CreateOrganization(ctx, org); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, notFound("User not found")
		}
		return nil, fmt.Errorf("create organization: %w", err)
	}
	return org, nil
}

// FindAllOwned lists organizations owned by ownerID, newest first. Organizations
// the caller is only a member of are not included.
func (s *OrganizationService) FindAllOwned(ctx context.Context, ownerID string) ([]models.Organization, error) {
	orgs, err := s.db.ListOrganizationsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	return orgs, nil
}

// FindOwned returns the organization only when ownerID owns it.
func (s *OrganizationService) FindOwned(ctx context.Context, id, ownerID string) (*models.Organization, error) {
	org, err := s.db.GetOrganization(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, notFound("Organization Not Found")
	}
	if err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}
	if org.OwnerID != ownerID {
		return nil, notFound("Organization Not Found")
	}
	return org, nil
}

// Update renames an owned organization. The owner never changes.
func (s *OrganizationService) Update(ctx context.Context, id, ownerID string, name *string) (*models.Organization, error) {
	org, err := s.FindOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if name == nil || strings.TrimSpace(*name) == "" {
		return nil, validationError("Name must be provided")
	}
	org.Name = *name
	if err := s.db.UpdateOrganization(ctx, org); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, notFound("Organization Not Found")
		}
		return nil, fmt.Errorf("update organization: %w", err)
	}
	return org, nil
}

// Remove deletes an owned organization together with its projects, tasks and memberships.
func (s *OrganizationService) Remove(ctx context.Context, id, ownerID string) error {
	if _, err := s.FindOwned(ctx, id, ownerID); err != nil {
		return err
	}
	n, err := s.db.DeleteOrganization(ctx, id)
	if err != nil {
		return fmt.Errorf("delete organization: %w", err)
	}
	if n == 0 {
		return notFound("Organization Not Found")
	}
	return nil
}
