package database

import (
	"context"
	"errors"
	"fmt"

	"taskboard-backend/pkg/models"
)

var (
	// ErrNotFound is returned by single-row lookups that match nothing.
	ErrNotFound = errors.New("record not found")
	// ErrUniqueViolation is returned when a write collides with a uniqueness constraint.
	ErrUniqueViolation = errors.New("unique constraint violation")
)

// DatabaseInterface 定义数据库访问接口
//
// Every implementation must report ErrNotFound and ErrUniqueViolation (possibly wrapped)
// so that callers can tell them apart with errors.Is. Delete methods return the number
// of affected rows.
type DatabaseInterface interface {
	// Users
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id string) (int64, error)
	// SearchUsers matches q case-insensitively against first name, last name and username.
	SearchUsers(ctx context.Context, q string, limit, offset int) ([]models.User, int, error)

	// Organizations
	CreateOrganization(ctx context.Context, org *models.Organization) error
	GetOrganization(ctx context.Context, id string) (*models.Organization, error)
	// ListOrganizationsByOwner returns newest first.
	ListOrganizationsByOwner(ctx context.Context, ownerID string) ([]models.Organization, error)
	UpdateOrganization(ctx context.Context, org *models.Organization) error
	// DeleteOrganization cascades to projects, their tasks and memberships.
	DeleteOrganization(ctx context.Context, id string) (int64, error)

	// Memberships
	CreateMembership(ctx context.Context, m *models.Membership) error
	GetMembership(ctx context.Context, userID, orgID string) (*models.Membership, error)
	DeleteMembership(ctx context.Context, orgID, userID string) (int64, error)
	// ListOrganizationMembers returns earliest joiner first.
	ListOrganizationMembers(ctx context.Context, orgID string) ([]models.OrganizationMember, error)
	ListUserMemberships(ctx context.Context, userID string) ([]models.MembershipWithOrganization, error)

	// Projects
	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id string) (*models.Project, error)
	ListProjectsByOrganization(ctx context.Context, orgID string) ([]models.Project, error)
	UpdateProject(ctx context.Context, p *models.Project) error
	DeleteProject(ctx context.Context, id string) (int64, error)

	// Tasks
	CreateTask(ctx context.Context, t *models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	// ListProjectTasks returns newest first, each joined with its assignee.
	ListProjectTasks(ctx context.Context, projectID string) ([]models.TaskWithAssignee, error)
	// ListAssignedTasks returns the project's tasks assigned to assigneeID, newest first.
	ListAssignedTasks(ctx context.Context, projectID, assigneeID string) ([]models.Task, error)
	UpdateTask(ctx context.Context, t *models.Task) error
	DeleteTask(ctx context.Context, id string) (int64, error)

	// 健康检查
	HealthCheck(ctx context.Context) error

	// 关闭连接
	Close() error
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	UseMemoryDB bool
	PostgresDSN string
	Debug       bool
}

// NewDatabase 根据配置选择数据库实现
func NewDatabase(config DatabaseConfig) (DatabaseInterface, error) {
	if config.PostgresDSN != "" && !config.UseMemoryDB {
		return NewPostgresDatabase(config.PostgresDSN)
	}
	if config.UseMemoryDB {
		return NewMemoryDatabase(), nil
	}
	return nil, fmt.Errorf("no valid database configuration found: set POSTGRES_DSN or USE_MEMORY_DB")
}
