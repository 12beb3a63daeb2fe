package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"taskboard-backend/pkg/services"
	"taskboard-backend/pkg/utils"
)

// ProjectsHandler 项目处理器
type ProjectsHandler struct {
	projects *services.ProjectService
	tasks    *services.TaskService
}

func NewProjectsHandler(projects *services.ProjectService, tasks *services.TaskService) *ProjectsHandler {
	return &ProjectsHandler{projects: projects, tasks: tasks}
}

type createProjectRequest struct {
	OrganizationID string `json:"organizationId" validate:"required"`
	Name           string `json:"name" validate:"required,min=2,max=20"`
}

type updateProjectRequest struct {
	Name string `json:"name" validate:"required,min=2,max=20"`
}

// POST /api/projects
func (h *ProjectsHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req createProjectRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	project, err := h.projects.Create(r.Context(), req.OrganizationID, req.Name, userID)
	if err != nil {
		utils.WriteServiceError(w, r, err)
		return
	}
	utils.WriteCreatedResponse(w, project)
}

// GET /api/projects/{id}
func (h *ProjectsHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	project, err := h.projects.FindOne(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		utils.WriteServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, project)
}

// PATCH /api/projects/{id}
func (h *ProjectsHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req updateProjectRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	project, err := h.projects.Update(r.Context(), chi.URLParam(r, "id"), req.Name, userID)
	if err != nil {
		utils.WriteServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, project)
}

// DELETE /api/projects/{id}
func (h *ProjectsHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	if err := h.projects.Remove(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		utils.WriteServiceError(w, r, err)
		return
	}
	utils.WriteNoContentResponse(w)
}

// GET /api/projects/{id}/tasks
func (h *ProjectsHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	tasks, err := h.tasks.ListForProject(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		utils.WriteServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, tasks)
}
