package models

import (
	"fmt"
	"strings"
	"time"
)

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "To Do"
	TaskStatusInProgress TaskStatus = "In Progress"
	TaskStatusDone       TaskStatus = "Done"
)

// DefaultTaskColor is stored when a task is created without a color.
const DefaultTaskColor = "#ffffff"

// ParseTaskStatus accepts the stored form ("In Progress") and the symbolic form (IN_PROGRESS).
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", "_")) {
	case "TO_DO", "TODO":
		return TaskStatusTodo, nil
	case "IN_PROGRESS":
		return TaskStatusInProgress, nil
	case "DONE":
		return TaskStatusDone, nil
	}
	return "", fmt.Errorf("invalid task status %q", s)
}

// Task belongs to one project and is assigned to one user.
type Task struct {
	ID          string     `json:"id" db:"id"`
	ProjectID   string     `json:"projectId" db:"project_id"`
	AssigneeID  string     `json:"assigneeId" db:"assignee_id"`
	Name        string     `json:"name" db:"name"`
	Description string     `json:"description" db:"description"`
	Status      TaskStatus `json:"status" db:"status"`
	Color       string     `json:"color" db:"color"`
	DueDate     time.Time  `json:"dueDate" db:"due_date"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

// TaskWithAssignee is a task row joined with its assignee's public identity.
// Assignee is nil when the caller is not allowed to see it.
type TaskWithAssignee struct {
	Task
	Assignee *UserSummary `json:"assignee,omitempty"`
}

// CreateTaskRequest is the payload of POST /api/tasks.
type CreateTaskRequest struct {
	Name        string     `json:"name" validate:"required,max=50"`
	Description string     `json:"description" validate:"required"`
	ProjectID   string     `json:"projectId" validate:"required"`
	AssigneeID  string     `json:"assigneeId" validate:"required"`
	Status      TaskStatus `json:"status,omitempty"`
	Color       string     `json:"color,omitempty" validate:"omitempty,len=7"`
	DueDate     string     `json:"dueDate" validate:"required"`
}

// TaskField names a mutable task attribute as it appears in a patch.
type TaskField string

const (
	TaskFieldAssigneeID  TaskField = "assigneeId"
	TaskFieldColor       TaskField = "color"
	TaskFieldDescription TaskField = "description"
	TaskFieldDueDate     TaskField = "dueDate"
	TaskFieldName        TaskField = "name"
	TaskFieldProjectID   TaskField = "projectId"
	TaskFieldStatus      TaskField = "status"
)

// TaskFields lists every patchable field in the order policy checks report them.
var TaskFields = []TaskField{
	TaskFieldAssigneeID,
	TaskFieldColor,
	TaskFieldDescription,
	TaskFieldDueDate,
	TaskFieldName,
	TaskFieldProjectID,
	TaskFieldStatus,
}

// TaskPatch holds the fields present in an update request. A nil pointer means the
// field was absent from the request.
type TaskPatch struct {
	Name        *string
	Description *string
	ProjectID   *string
	AssigneeID  *string
	Status      *TaskStatus
	Color       *string
	DueDate     *time.Time
}

// Fields returns the set of fields present in the patch, in TaskFields order.
func (p *TaskPatch) Fields() []TaskField {
	present := map[TaskField]bool{
		TaskFieldAssigneeID:  p.AssigneeID != nil,
		TaskFieldColor:       p.Color != nil,
		TaskFieldDescription: p.Description != nil,
		TaskFieldDueDate:     p.DueDate != nil,
		TaskFieldName:        p.Name != nil,
		TaskFieldProjectID:   p.ProjectID != nil,
		TaskFieldStatus:      p.Status != nil,
	}
	var out []TaskField
	for _, f := range TaskFields {
		if present[f] {
			out = append(out, f)
		}
	}
	return out
}

// Apply copies the present fields onto t.
func (p *TaskPatch) Apply(t *Task) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.ProjectID != nil {
		t.ProjectID = *p.ProjectID
	}
	if p.AssigneeID != nil {
		t.AssigneeID = *p.AssigneeID
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Color != nil {
		t.Color = *p.Color
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
}
