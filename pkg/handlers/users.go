package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"taskboard-backend/pkg/models"
	"taskboard-backend/pkg/services"
	"taskboard-backend/pkg/utils"
)

// UsersHandler serves the caller's own account and user search.
type UsersHandler struct {
	users       *services.UserService
	memberships *services.MembershipService
	tasks       *services.TaskService
}

func NewUsersHandler(users *services.UserService, memberships *services.MembershipService, tasks *services.TaskService) *UsersHandler {
	return &UsersHandler{users: users, memberships: memberships, tasks: tasks}
}

// GET /api/users/me
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	user, err := h.users.Me(r.Context(), userID)
	if err != nil {
		utils.WriteServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, user)
}

// PATCH /api/users/me
func (h *UsersHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var patch models.UserPatch
	if !decodeAndValidate(w, r, &patch) {
		return
	}
	user, err := h.users.UpdateMe(r.Context(), userID, patch)
	if err != nil {
		utils.WriteServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, user)
}

// DELETE /api/users/me
func (h *UsersHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	if err := h.users.DeleteMe(r.Context(), userID); err != nil {
		utils.WriteServiceError(w, r, err)
		return
	}
	utils.WriteNoContentResponse(w)
}

// GET /api/users/me/memberships
func (h *UsersHandler) MyMemberships(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	memberships, err := h.memberships.ListMemberships(r.Context(), userID)
	if err != nil {
		utils.WriteServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, memberships)
}

// GET /api/users/me/projects/{id}/tasks
func (h *UsersHandler) MyProjectTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	tasks, err := h.tasks.ListAssigned(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		utils.WriteServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, tasks)
}

// GET /api/users/search?q=&page=
func (h *UsersHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := utils.GetQueryParam(r, "q", "")
	page := utils.GetIntQueryParam(r, "page", 1)

	result, err := h.users.Search(r.Context(), q, page)
	if err != nil {
		utils.WriteServiceError(w, r, err)
		return
	}
	utils.WritePaginatedResponse(w, result.Data, result.Page, services.SearchPageSize, result.Total)
}
