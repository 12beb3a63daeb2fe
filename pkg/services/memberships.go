package services

import (
	"context"
	"errors"
	"fmt"

	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/models"
)

// MembershipService manages the user/organization join rows.
//
// Add, Remove and ListMembers check nothing beyond authentication of the caller.
// Any authenticated user may manage or list the members of any organization.
type MembershipService struct {
	db database.DatabaseInterface
}

func NewMembershipService(db database.DatabaseInterface) *MembershipService {
	return &MembershipService{db: db}
}

// Create adds userID to organizationID. Both must exist; an existing membership
// is a Conflict.
func (s *MembershipService) Create(ctx context.Context, userID, organizationID string) (*models.Membership, error) {
	if _, err := s.db.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, notFound("User not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if _, err := s.db.GetOrganization(ctx, organizationID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, notFound("Organization not found")
		}
		return nil, fmt.Errorf("get organization: %w", err)
	}

	m := &models.Membership{UserID: userID, OrganizationID: organizationID}
	// uniqueness is enforced by the store's (user, organization) constraint
	if err := s.db.CreateMembership(ctx, m); err != nil {
		switch {
		case errors.Is(err, database.ErrUniqueViolation):
			return nil, conflict("User is already a member of this organization")
		case errors.Is(err, database.ErrNotFound):
			return nil, notFound("User or organization not found")
		}
		return nil, fmt.Errorf("create membership: %w", err)
	}
	return m, nil
}

// Remove deletes the membership of userID in organizationID.
func (s *MembershipService) Remove(ctx context.Context, organizationID, userID string) error {
	n, err := s.db.DeleteMembership(ctx, organizationID, userID)
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	if n == 0 {
		return notFound("Membership not found")
	}
	return nil
}

// ListMembers returns the organization's members, earliest joiner first.
func (s *MembershipService) ListMembers(ctx context.Context, organizationID string) ([]models.OrganizationMember, error) {
	members, err := s.db.ListOrganizationMembers(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// ListMemberships returns userID's memberships with each organization attached.
func (s *MembershipService) ListMemberships(ctx context.Context, userID string) ([]models.MembershipWithOrganization, error) {
	memberships, err := s.db.ListUserMemberships(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	return memberships, nil
}
