package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"taskboard-backend/pkg/access"
	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/models"
)

type stubTokens struct{}

func (stubTokens) GenerateAccessToken(userID string) (string, int64, error) {
	return "token-for-" + userID, 42, nil
}

// env wires every service over a fresh in-memory store.
type env struct {
	db          *database.MemoryDatabase
	users       *UserService
	orgs        *OrganizationService
	memberships *MembershipService
	projects    *ProjectService
	tasks       *TaskService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := database.NewMemoryDatabase()
	resolver := access.NewResolver(db)
	return &env{
		db:          db,
		users:       NewUserService(db, NewPasswordHasher(4), stubTokens{}),
		orgs:        NewOrganizationService(db),
		memberships: NewMembershipService(db),
		projects:    NewProjectService(db, resolver),
		tasks:       NewTaskService(db, resolver),
	}
}

func (e *env) user(t *testing.T, username string) *models.User {
	t.Helper()
	u, err := e.users.SignUp(context.Background(), models.UserRegisterRequest{
		Username:  username,
		FirstName: "First" + username,
		LastName:  "Last" + username,
		Email:     username + "@example.com",
		Password:  "secret123",
	})
	require.NoError(t, err)
	return u
}

// board is an organization with one owner, one member, one outsider and one project.
type board struct {
	owner, member, outsider *models.User
	org                     *models.Organization
	project                 *models.Project
}

func (e *env) board(t *testing.T) *board {
	t.Helper()
	ctx := context.Background()
	b := &board{
		owner:    e.user(t, "owner"),
		member:   e.user(t, "member"),
		outsider: e.user(t, "outsider"),
	}
	var err error
	b.org, err = e.orgs.Create(ctx, "Acme", b.owner.ID)
	require.NoError(t, err)
	_, err = e.memberships.Create(ctx, b.member.ID, b.org.ID)
	require.NoError(t, err)
	b.project, err = e.projects.Create(ctx, b.org.ID, "Web", b.owner.ID)
	require.NoError(t, err)
	return b
}

func (e *env) task(t *testing.T, b *board, assigneeID string) *models.Task {
	t.Helper()
	task, err := e.tasks.Create(context.Background(), models.CreateTaskRequest{
		Name:        "Write docs",
		Description: "Document the API",
		ProjectID:   b.project.ID,
		AssigneeID:  assigneeID,
		DueDate:     "2030-01-15",
	}, b.owner.ID)
	require.NoError(t, err)
	return task
}

func strPtr(s string) *string { return &s }

func statusPtr(s models.TaskStatus) *models.TaskStatus { return &s }

func timePtr(t time.Time) *time.Time { return &t }
