package models

import "time"

// Organization is owned by exactly one user. OwnerID never changes after creation.
type Organization struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	OwnerID   string    `json:"ownerId" db:"owner_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Membership relates a non-owner user to an organization.
// (UserID, OrganizationID) is unique.
type Membership struct {
	ID             string    `json:"id" db:"id"`
	UserID         string    `json:"userId" db:"user_id"`
	OrganizationID string    `json:"organizationId" db:"organization_id"`
	JoinedAt       time.Time `json:"joinedAt" db:"joined_at"`
}

// OrganizationMember is one row of an organization's member listing.
type OrganizationMember struct {
	ID        string    `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	FirstName string    `json:"firstName" db:"first_name"`
	LastName  string    `json:"lastName" db:"last_name"`
	JoinedAt  time.Time `json:"joinedAt" db:"joined_at"`
}

// MembershipWithOrganization is a membership of the caller together with the organization it points at.
type MembershipWithOrganization struct {
	ID           string       `json:"id"`
	JoinedAt     time.Time    `json:"joinedAt"`
	Organization Organization `json:"organization"`
}
