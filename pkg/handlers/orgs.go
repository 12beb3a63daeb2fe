package handlers

import (
	"net/http"

	chiRoute "github.com/go-chi/chi/v5"

	"taskboard-backend/pkg/services"
	"taskboard-backend/pkg/utils"
)

type OrgsHandler struct {
	orgs        *services.OrganizationService
	memberships *services.MembershipService
	projects    *services.ProjectService
}

func NewOrgsHandler(orgs *services.OrganizationService, memberships *services.MembershipService, projects *services.ProjectService) *OrgsHandler {
	return &OrgsHandler{orgs: orgs, memberships: memberships, projects: projects}
}

type organizationRequest struct {
	Name *string `json:"name" validate:"required,min=1,max=32"`
}

// updateOrganizationRequest leaves the missing-name check to the service, after the owner lookup.
type updateOrganizationRequest struct {
	Name *string `json:"name" validate:"omitnil,max=32"`
}

type addMemberRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// POST /api/organizations
func (h *OrgsHandler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req organizationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	org, err := h.orgs.Create(r.Context(), *req.Name, userID)
	if err != nil {
		utils.WriteServiceError(w, r, err)
		return
	}
	utils.WriteCreatedResponse(w, org)
}

// GET /api/organizations
func (h *OrgsHandler) ListMyOrganizations(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	orgs, err := h.orgs.FindAllOwned(r.Context(), userID)
	if err != nil {
		utils.WriteServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, orgs)
}

// GET /api/organizations/{id}
func (h *OrgsHandler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	org, err := h.orgs.FindOwned(r.Context(), chiRoute.URLParam(r, "id"), userID)
	if err != nil {
		utils.WriteServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, org)
}

// PATCH /api/organizations/{id}
func (h *OrgsHandler) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req updateOrganizationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	org, err := h.orgs.Update(r.Context(), chiRoute.URLParam(r, "id"), userID, req.Name)
	if err != nil {
		utils.WriteServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, org)
}

// DELETE /api/organizations/{id}
func (h *OrgsHandler) DeleteOrganization(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	if err := h.orgs.Remove(r.Context(), chiRoute.URLParam(r, "id"), userID); err != nil {
		utils.WriteServiceError(w, r, err)
		return
	}
	utils.WriteNoContentResponse(w)
}

// POST /api/organizations/{id}/members
func (h *OrgsHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerID(w, r); !ok {
		return
	}
	var req addMemberRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	m, err := h.memberships.Create(r.Context(), req.UserID, chiRoute.URLParam(r, "id"))
	if err != nil {
		utils.WriteServiceError(w, r, err)
		return
	}
	utils.WriteCreatedResponse(w, m)
}

// DELETE /api/organizations/{id}/members/{userId}
func (h *OrgsHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerID(w, r); !ok {
		return
	}
	err := h.memberships.Remove(r.Context(), chiRoute.URLParam(r, "id"), chiRoute.URLParam(r, "userId"))
	if err != nil {
		utils.WriteServiceError(w, r, err)
		return
	}
	utils.WriteNoContentResponse(w)
}

// GET /api/organizations/{id}/members
func (h *OrgsHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerID(w, r); !ok {
		return
	}
	members, err := h.memberships.ListMembers(r.Context(), chiRoute.URLParam(r, "id"))
	if err != nil {
		utils.WriteServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, members)
}

// GET /api/organizations/{id}/projects
func (h *OrgsHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	projects, err := h.projects.FindAll(r.Context(), chiRoute.URLParam(r, "id"), userID)
	if err != nil {
		utils.WriteServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, projects)
}
