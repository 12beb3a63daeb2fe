package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"taskboard-backend/pkg/models"
	"taskboard-backend/pkg/services"
	"taskboard-backend/pkg/utils"
)

const maxTaskNameLength = 50

// TasksHandler 任务处理器
type TasksHandler struct {
	tasks *services.TaskService
}

func NewTasksHandler(tasks *services.TaskService) *TasksHandler {
	return &TasksHandler{tasks: tasks}
}

// POST /api/tasks
func (h *TasksHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req models.CreateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.Status != "" {
		status, err := models.ParseTaskStatus(string(req.Status))
		if err != nil {
			utils.WriteValidationErrorResponse(w, "Invalid request body", "status: oneof=To Do,In Progress,Done")
			return
		}
		req.Status = status
	}

	task, err := h.tasks.Create(r.Context(), req, userID)
	if err != nil {
		utils.WriteServiceError(w, r, err)
		return
	}
	utils.WriteCreatedResponse(w, task)
}

// GET /api/tasks/{id}
func (h *TasksHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	task, err := h.tasks.FindOne(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		utils.WriteServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, task)
}

// PATCH /api/tasks/{id}
func (h *TasksHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var raw map[string]json.RawMessage
	if err := utils.ParseJSONBody(r, &raw); err != nil {
		writeDecodeError(w, err)
		return
	}
	patch, err := parseTaskPatch(raw)
	if err != nil {
		utils.WriteValidationErrorResponse(w, "Invalid request body", err.Error())
		return
	}

	task, err := h.tasks.Update(r.Context(), chi.URLParam(r, "id"), patch, userID)
	if err != nil {
		utils.WriteServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, task)
}

// DELETE /api/tasks/{id}
func (h *TasksHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	if err := h.tasks.Remove(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		utils.WriteServiceError(w, r, err)
		return
	}
	utils.WriteNoContentResponse(w)
}

// parseTaskPatch builds a patch from the keys present in the request object. A
// key sent as null is present with its zero value. Unknown keys are ignored.
func parseTaskPatch(raw map[string]json.RawMessage) (models.TaskPatch, error) {
	var patch models.TaskPatch

	str := func(field models.TaskField) (*string, error) {
		v, ok := raw[string(field)]
		if !ok {
			return nil, nil
		}
		var s string
		if isNull(v) {
			return &s, nil
		}
		if err := json.Unmarshal(v, &s); err != nil {
			return nil, fmt.Errorf("%s: must be a string", field)
		}
		return &s, nil
	}

	var err error
	if patch.Name, err = str(models.TaskFieldName); err != nil {
		return patch, err
	}
	if patch.Name != nil && utf8.RuneCountInString(*patch.Name) > maxTaskNameLength {
		return patch, fmt.Errorf("name: max=%d", maxTaskNameLength)
	}
	if patch.Description, err = str(models.TaskFieldDescription); err != nil {
		return patch, err
	}
	if patch.ProjectID, err = str(models.TaskFieldProjectID); err != nil {
		return patch, err
	}
	if patch.AssigneeID, err = str(models.TaskFieldAssigneeID); err != nil {
		return patch, err
	}
	if patch.Color, err = str(models.TaskFieldColor); err != nil {
		return patch, err
	}

	status, err := str(models.TaskFieldStatus)
	if err != nil {
		return patch, err
	}
	if status != nil {
		st := models.TaskStatus("")
		if *status != "" {
			if st, err = models.ParseTaskStatus(*status); err != nil {
				return patch, fmt.Errorf("status: oneof=To Do,In Progress,Done")
			}
		}
		patch.Status = &st
	}

	due, err := str(models.TaskFieldDueDate)
	if err != nil {
		return patch, err
	}
	if due != nil {
		var t time.Time
		if *due != "" {
			if t, err = services.ParseDueDate(*due); err != nil {
				return patch, fmt.Errorf("dueDate: must be an ISO 8601 date")
			}
		}
		patch.DueDate = &t
	}

	return patch, nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
