package models

import "time"

// Project belongs to exactly one organization.
type Project struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organizationId" db:"organization_id"`
	Name           string    `json:"name" db:"name"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}
