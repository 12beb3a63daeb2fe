package access

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard-backend/pkg/models"
)

func TestCheckTaskPatch(t *testing.T) {
	tests := []struct {
		name    string
		role    TaskRole
		fields  []models.TaskField
		wantMsg string
	}{
		{"owner edits details", TaskOwner, []models.TaskField{models.TaskFieldName, models.TaskFieldColor}, ""},
		{"owner moves and reassigns", TaskOwner, []models.TaskField{models.TaskFieldAssigneeID, models.TaskFieldProjectID}, ""},
		{"owner sets status", TaskOwner, []models.TaskField{models.TaskFieldStatus}, "Owner cannot update the task status"},
		{"assignee sets status", TaskAssignee, []models.TaskField{models.TaskFieldStatus}, ""},
		{"assignee sets color", TaskAssignee, []models.TaskField{models.TaskFieldColor}, "Assignee cannot update 'color'"},
		{"assignee mixed patch reports first denied field", TaskAssignee,
			[]models.TaskField{models.TaskFieldDescription, models.TaskFieldName, models.TaskFieldStatus},
			"Assignee cannot update 'description'"},
		{"none with empty patch", TaskNone, nil, "You are not allowed to update this task"},
		{"none with status", TaskNone, []models.TaskField{models.TaskFieldStatus}, "You are not allowed to update this task"},
		{"empty patch is allowed for owner", TaskOwner, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTaskPatch(tt.role, tt.fields)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, err.Error())
			var denied *FieldDeniedError
			assert.True(t, errors.As(err, &denied))
		})
	}
}

func TestAllowedTaskFields(t *testing.T) {
	assert.Equal(t, []models.TaskField{models.TaskFieldStatus}, AllowedTaskFields(TaskAssignee))
	assert.Equal(t, []models.TaskField{
		models.TaskFieldAssigneeID,
		models.TaskFieldColor,
		models.TaskFieldDescription,
		models.TaskFieldDueDate,
		models.TaskFieldName,
		models.TaskFieldProjectID,
	}, AllowedTaskFields(TaskOwner))
	assert.Empty(t, AllowedTaskFields(TaskNone))
}
