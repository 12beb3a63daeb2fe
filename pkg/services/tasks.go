package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskboard-backend/pkg/access"
	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/models"
)

// TaskService gates task CRUD and applies the per-role field policy on updates.
type TaskService struct {
	db       database.DatabaseInterface
	resolver *access.Resolver
}

func NewTaskService(db database.DatabaseInterface, resolver *access.Resolver) *TaskService {
	return &TaskService{db: db, resolver: resolver}
}

// ParseDueDate accepts an RFC 3339 timestamp or a bare YYYY-MM-DD date.
func ParseDueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, validationError("dueDate must be a valid ISO 8601 date")
}

// Create adds a task to a project. Only the owner of the project's organization may
// create tasks, and the assignee must exist.
func (s *TaskService) Create(ctx context.Context, req models.CreateTaskRequest, userID string) (*models.Task, error) {
	project, err := s.db.GetProject(ctx, req.ProjectID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("get project: %w", err)
	}
	role, err := s.resolver.ProjectRole(ctx, userID, project)
	if err != nil {
		return nil, err
	}
	if role != access.OrgOwner {
		return nil, forbidden("Cannot create task for this project")
	}

	if _, err := s.db.GetUserByID(ctx, req.AssigneeID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, notFound("User not found")
		}
		return nil, fmt.Errorf("get assignee: %w", err)
	}

	dueDate, err := ParseDueDate(req.DueDate)
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		ProjectID:   project.ID,
		AssigneeID:  req.AssigneeID,
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		Color:       req.Color,
		DueDate:     dueDate,
	}
	if task.Status == "" {
		task.Status = models.TaskStatusTodo
	}
	if task.Color == "" {
		task.Color = models.DefaultTaskColor
	}

	if err := s.db.CreateTask(ctx, task); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, notFound("Project or user not found")
		}
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// FindOne returns a task to its organization owner or its assignee. Organization
// membership alone is not enough.
func (s *TaskService) FindOne(ctx context.Context, id, userID string) (*models.Task, error) {
	task, err := s.getTask(ctx, id)
	if err != nil {
		return nil, err
	}
	role, err := s.resolver.TaskRole(ctx, userID, task)
	if err != nil {
		return nil, err
	}
	if role == access.TaskNone {
		return nil, forbidden("Cannot view this task")
	}
	return task, nil
}

// ListForProject returns every task with assignee details to the organization
// owner, and only the caller's own tasks without assignee details to a member.
func (s *TaskService) ListForProject(ctx context.Context, projectID, userID string) ([]models.TaskWithAssignee, error) {
	project, err := s.db.GetProject(ctx, projectID)
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

	switch role {
	case access.OrgOwner:
		tasks, err := s.db.ListProjectTasks(ctx, projectID)
		if err != nil {
			return nil, fmt.Errorf("list project tasks: %w", err)
		}
		return tasks, nil
	case access.OrgMember:
		tasks, err := s.db.ListAssignedTasks(ctx, projectID, userID)
		if err != nil {
			return nil, fmt.Errorf("list assigned tasks: %w", err)
		}
		out := make([]models.TaskWithAssignee, 0, len(tasks))
		for _, t := range tasks {
			out = append(out, models.TaskWithAssignee{Task: t})
		}
		return out, nil
	default:
		return nil, forbidden("Cannot view this project's tasks")
	}
}

// ListAssigned returns the caller's own tasks in a project.
func (s *TaskService) ListAssigned(ctx context.Context, projectID, userID string) ([]models.Task, error) {
	tasks, err := s.db.ListAssignedTasks(ctx, projectID, userID)
	if err != nil {
		return nil, fmt.Errorf("list assigned tasks: %w", err)
	}
	return tasks, nil
}

// Update applies patch after checking every present field against the caller's
// task role. The owner may change anything except status; the assignee may
// change only status. Nothing is written when any field is denied.
func (s *TaskService) Update(ctx context.Context, id string, patch models.TaskPatch, userID string) (*models.Task, error) {
	task, err := s.getTask(ctx, id)
	if err != nil {
		return nil, err
	}
	role, err := s.resolver.TaskRole(ctx, userID, task)
	if err != nil {
		return nil, err
	}

	if err := access.CheckTaskPatch(role, patch.Fields()); err != nil {
		return nil, forbidden("%s", err.Error())
	}

	if err := validateTaskPatch(patch); err != nil {
		return nil, err
	}

	if role == access.TaskOwner {
		if err := s.checkOwnerReferences(ctx, task, patch, userID); err != nil {
			return nil, err
		}
	}

	patch.Apply(task)
	if err := s.db.UpdateTask(ctx, task); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, notFound("Task not found")
		}
		return nil, fmt.Errorf("update task: %w", err)
	}
	return task, nil
}

// validateTaskPatch rejects present fields whose value would leave the task
// incomplete. A field sent as null arrives here as its zero value.
func validateTaskPatch(patch models.TaskPatch) error {
	switch {
	case patch.Name != nil && strings.TrimSpace(*patch.Name) == "":
		return validationError("name must not be empty")
	case patch.Description != nil && strings.TrimSpace(*patch.Description) == "":
		return validationError("description must not be empty")
	case patch.ProjectID != nil && *patch.ProjectID == "":
		return validationError("projectId must not be empty")
	case patch.AssigneeID != nil && *patch.AssigneeID == "":
		return validationError("assigneeId must not be empty")
	case patch.Color != nil && len(*patch.Color) != 7:
		return validationError("color must be exactly 7 characters")
	case patch.DueDate != nil && patch.DueDate.IsZero():
		return validationError("dueDate must be provided")
	}
	if patch.Status != nil {
		if _, err := models.ParseTaskStatus(string(*patch.Status)); err != nil {
			return validationError("status must be one of To Do, In Progress, Done")
		}
	}
	return nil
}

// checkOwnerReferences validates a move to another project and a reassignment.
func (s *TaskService) checkOwnerReferences(ctx context.Context, task *models.Task, patch models.TaskPatch, userID string) error {
	if patch.ProjectID != nil && *patch.ProjectID != task.ProjectID {
		dest, err := s.db.GetProject(ctx, *patch.ProjectID)
		if errors.Is(err, database.ErrNotFound) {
			return notFound("Project not found")
		}
		if err != nil {
			return fmt.Errorf("get project: %w", err)
		}
		role, err := s.resolver.ProjectRole(ctx, userID, dest)
		if err != nil {
			return err
		}
		if role != access.OrgOwner {
			return forbidden("Cannot move task to this project")
		}
	}
	if patch.AssigneeID != nil && *patch.AssigneeID != task.AssigneeID {
		if _, err := s.db.GetUserByID(ctx, *patch.AssigneeID); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return notFound("User not found")
			}
			return fmt.Errorf("get assignee: %w", err)
		}
	}
	return nil
}

// Remove deletes a task on behalf of its organization owner. Any other caller,
// the assignee included, gets NotFound, so existence is not revealed.
func (s *TaskService) Remove(ctx context.Context, id, userID string) error {
	task, err := s.getTask(ctx, id)
	if err != nil {
		return err
	}
	role, err := s.resolver.TaskRole(ctx, userID, task)
	if err != nil {
		return err
	}
	if role != access.TaskOwner {
		return notFound("Task not found")
	}

	n, err := s.db.DeleteTask(ctx, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n == 0 {
		return notFound("Task not found")
	}
	return nil
}

func (s *TaskService) getTask(ctx context.Context, id string) (*models.Task, error) {
	task, err := s.db.GetTask(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, notFound("Task not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}
