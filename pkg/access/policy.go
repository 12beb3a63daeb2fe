package access

import (
	"fmt"

	"taskboard-backend/pkg/models"
)

// taskFieldPolicy is the allow-list of patchable task fields per role. A role
// missing from the table may not update tasks at all.
var taskFieldPolicy = map[TaskRole]map[models.TaskField]bool{
	TaskOwner: {
		models.TaskFieldName:        true,
		models.TaskFieldDescription: true,
		models.TaskFieldProjectID:   true,
		models.TaskFieldAssigneeID:  true,
		models.TaskFieldColor:       true,
		models.TaskFieldDueDate:     true,
	},
	TaskAssignee: {
		models.TaskFieldStatus: true,
	},
}

// FieldDeniedError reports the first patch field the role may not set.
type FieldDeniedError struct {
	Role  TaskRole
	Field models.TaskField
}

func (e *FieldDeniedError) Error() string {
	switch e.Role {
	case TaskOwner:
		if e.Field == models.TaskFieldStatus {
			return "Owner cannot update the task status"
		}
		return fmt.Sprintf("Owner cannot update '%s'", e.Field)
	case TaskAssignee:
		return fmt.Sprintf("Assignee cannot update '%s'", e.Field)
	default:
		return "You are not allowed to update this task"
	}
}

// AllowedTaskFields returns the fields role may set, in models.TaskFields order.
func AllowedTaskFields(role TaskRole) []models.TaskField {
	allowed := taskFieldPolicy[role]
	var out []models.TaskField
	for _, f := range models.TaskFields {
		if allowed[f] {
			out = append(out, f)
		}
	}
	return out
}

// CheckTaskPatch verifies every field in fields against the role's allow-list
// before anything is written. TaskNone is always denied.
func CheckTaskPatch(role TaskRole, fields []models.TaskField) error {
	allowed, ok := taskFieldPolicy[role]
	if !ok {
		return &FieldDeniedError{Role: role}
	}
	for _, f := range fields {
		if !allowed[f] {
			return &FieldDeniedError{Role: role, Field: f}
		}
	}
	return nil
}
