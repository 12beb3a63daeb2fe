package database

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"taskboard-backend/pkg/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

//go:embed schema.sql
var schemaSQL string

// PostgreSQL error codes translated into the store's sentinel errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgInvalidTextRepr     = "22P02"
)

// PostgresDatabase PostgreSQL数据库实现
type PostgresDatabase struct {
	db *sqlx.DB
}

// NewPostgresDatabase 创建PostgreSQL数据库实例
func NewPostgresDatabase(dsn string) (*PostgresDatabase, error) {
	// Sanitize DSN to avoid stray CR/LF from env values
	dsn = strings.TrimSpace(dsn)
	strategies := []string{
		dsn,
		addConnectionParams(dsn, "connect_timeout=10"),
	}

	var lastErr error
	for i, strategy := range strategies {
		db, err := sqlx.Open("postgres", strategy)
		if err != nil {
			slog.Warn("postgres open failed", "strategy", i+1, "error", err)
			lastErr = err
			continue
		}

		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = db.PingContext(ctx)
		cancel()
		if err != nil {
			slog.Warn("postgres ping failed", "strategy", i+1, "error", err)
			db.Close()
			lastErr = err
			continue
		}

		slog.Info("postgres connection established", "strategy", i+1)
		return &PostgresDatabase{db: db}, nil
	}

	return nil, fmt.Errorf("connect to postgres: %w", lastErr)
}

// addConnectionParams 添加连接参数到DSN
func addConnectionParams(dsn, params string) string {
	if params == "" {
		return dsn
	}

	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}

	return dsn + separator + params
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (db *PostgresDatabase) Migrate(ctx context.Context) error {
	if _, err := db.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// TableCounts reports the row count of every table in the schema.
func (db *PostgresDatabase) TableCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, table := range []string{"users", "organizations", "memberships", "projects", "tasks"} {
		var n int
		if err := db.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+table); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// translate maps driver errors onto ErrNotFound / ErrUniqueViolation.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s (%s): %w", what, pqErr.Constraint, ErrUniqueViolation)
		case pgForeignKeyViolation, pgInvalidTextRepr:
			// a malformed or dangling id refers to nothing
			return fmt.Errorf("%s: %w", what, ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}

func rowsAffected(res sql.Result, err error, what string) (int64, error) {
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgInvalidTextRepr {
			return 0, nil
		}
		return 0, fmt.Errorf("%s: %w", what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: rows affected: %w", what, err)
	}
	return n, nil
}

// ==== users ====

const userColumns = `id, username, first_name, last_name, email, password_hash, created_at, updated_at`

func (db *PostgresDatabase) CreateUser(ctx context.Context, user *models.User) error {
	const q = `
		INSERT INTO users (username, first_name, last_name, email, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	err := db.db.QueryRowxContext(ctx, q, user.Username, user.FirstName, user.LastName, user.Email, user.Password).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	return translate(err, "create user")
}

func (db *PostgresDatabase) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := db.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, translate(err, "get user")
	}
	return &u, nil
}

func (db *PostgresDatabase) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := db.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	if err != nil {
		return nil, translate(err, "get user by email")
	}
	return &u, nil
}

func (db *PostgresDatabase) UpdateUser(ctx context.Context, user *models.User) error {
	const q = `
		UPDATE users
		SET username = $2, first_name = $3, last_name = $4, email = $5, password_hash = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`
	err := db.db.QueryRowxContext(ctx, q, user.ID, user.Username, user.FirstName, user.LastName, user.Email, user.Password).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	return translate(err, "update user")
}

func (db *PostgresDatabase) DeleteUser(ctx context.Context, id string) (int64, error) {
	res, err := db.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return rowsAffected(res, err, "delete user")
}

func (db *PostgresDatabase) SearchUsers(ctx context.Context, q string, limit, offset int) ([]models.User, int, error) {
	if limit < 0 || offset < 0 {
		return nil, 0, fmt.Errorf("search users: negative limit or offset")
	}
	pattern := "%" + escapeLike(q) + "%"
	const where = `WHERE first_name ILIKE $1 OR last_name ILIKE $1 OR username ILIKE $1`

	var total int
	if err := db.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users `+where, pattern); err != nil {
		return nil, 0, translate(err, "count users")
	}

	users := []models.User{}
	err := db.db.SelectContext(ctx, &users,
		`SELECT `+userColumns+` FROM users `+where+` ORDER BY created_at ASC LIMIT $2 OFFSET $3`,
		pattern, limit, offset)
	if err != nil {
		return nil, 0, translate(err, "search users")
	}
	return users, total, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// ==== organizations ====

func (db *PostgresDatabase) CreateOrganization(ctx context.Context, org *models.Organization) error {
	const q = `INSERT INTO organizations (name, owner_id) VALUES ($1, $2) RETURNING id, created_at`
	err := db.db.QueryRowxContext(ctx, q, org.Name, org.OwnerID).Scan(&org.ID, &org.CreatedAt)
	return translate(err, "create organization")
}

func (db *PostgresDatabase) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	var org models.Organization
	err := db.db.GetContext(ctx, &org, `SELECT id, name, owner_id, created_at FROM organizations WHERE id = $1`, id)
	if err != nil {
		return nil, translate(err, "get organization")
	}
	return &org, nil
}

func (db *PostgresDatabase) ListOrganizationsByOwner(ctx context.Context, ownerID string) ([]models.Organization, error) {
	orgs := []models.Organization{}
	err := db.db.SelectContext(ctx, &orgs,
		`SELECT id, name, owner_id, created_at FROM organizations WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgInvalidTextRepr {
			return orgs, nil
		}
		return nil, translate(err, "list organizations")
	}
	return orgs, nil
}

func (db *PostgresDatabase) UpdateOrganization(ctx context.Context, org *models.Organization) error {
	const q = `UPDATE organizations SET name = $2 WHERE id = $1 RETURNING owner_id, created_at`
	err := db.db.QueryRowxContext(ctx, q, org.ID, org.Name).Scan(&org.OwnerID, &org.CreatedAt)
	return translate(err, "update organization")
}

func (db *PostgresDatabase) DeleteOrganization(ctx context.Context, id string) (int64, error) {
	res, err := db.db.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	return rowsAffected(res, err, "delete organization")
}

// ==== memberships ====

func (db *PostgresDatabase) CreateMembership(ctx context.Context, m *models.Membership) error {
	const q = `INSERT INTO memberships (user_id, organization_id) VALUES ($1, $2) RETURNING id, joined_at`
	err := db.db.QueryRowxContext(ctx, q, m.UserID, m.OrganizationID).Scan(&m.ID, &m.JoinedAt)
	return translate(err, "create membership")
}

func (db *PostgresDatabase) GetMembership(ctx context.Context, userID, orgID string) (*models.Membership, error) {
	var m models.Membership
	err := db.db.GetContext(ctx, &m,
		`SELECT id, user_id, organization_id, joined_at FROM memberships WHERE user_id = $1 AND organization_id = $2`,
		userID, orgID)
	if err != nil {
		return nil, translate(err, "get membership")
	}
	return &m, nil
}

func (db *PostgresDatabase) DeleteMembership(ctx context.Context, orgID, userID string) (int64, error) {
	res, err := db.db.ExecContext(ctx,
		`DELETE FROM memberships WHERE organization_id = $1 AND user_id = $2`, orgID, userID)
	return rowsAffected(res, err, "delete membership")
}

func (db *PostgresDatabase) ListOrganizationMembers(ctx context.Context, orgID string) ([]models.OrganizationMember, error) {
	const q = `
		SELECT u.id, u.username, u.first_name, u.last_name, m.joined_at
		FROM memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.organization_id = $1
		ORDER BY m.joined_at ASC`
	members := []models.OrganizationMember{}
	if err := db.db.SelectContext(ctx, &members, q, orgID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgInvalidTextRepr {
			return members, nil
		}
		return nil, translate(err, "list members")
	}
	return members, nil
}

func (db *PostgresDatabase) ListUserMemberships(ctx context.Context, userID string) ([]models.MembershipWithOrganization, error) {
	const q = `
		SELECT m.id, m.joined_at, o.id, o.name, o.owner_id, o.created_at
		FROM memberships m
		JOIN organizations o ON o.id = m.organization_id
		WHERE m.user_id = $1
		ORDER BY m.joined_at ASC`
	rows, err := db.db.QueryxContext(ctx, q, userID)
	if err != nil {
		return nil, translate(err, "list memberships")
	}
	defer rows.Close()

	out := []models.MembershipWithOrganization{}
	for rows.Next() {
		var m models.MembershipWithOrganization
		if err := rows.Scan(&m.ID, &m.JoinedAt, &m.Organization.ID, &m.Organization.Name,
			&m.Organization.OwnerID, &m.Organization.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memberships: %w", err)
	}
	return out, nil
}

// ==== projects ====

func (db *PostgresDatabase) CreateProject(ctx context.Context, p *models.Project) error {
	const q = `INSERT INTO projects (organization_id, name) VALUES ($1, $2) RETURNING id, created_at`
	err := db.db.QueryRowxContext(ctx, q, p.OrganizationID, p.Name).Scan(&p.ID, &p.CreatedAt)
	return translate(err, "create project")
}

func (db *PostgresDatabase) GetProject(ctx context.Context, id string) (*models.Project, error) {
	var p models.Project
	err := db.db.GetContext(ctx, &p, `SELECT id, organization_id, name, created_at FROM projects WHERE id = $1`, id)
	if err != nil {
		return nil, translate(err, "get project")
	}
	return &p, nil
}

func (db *PostgresDatabase) ListProjectsByOrganization(ctx context.Context, orgID string) ([]models.Project, error) {
	projects := []models.Project{}
	err := db.db.SelectContext(ctx, &projects,
		`SELECT id, organization_id, name, created_at FROM projects WHERE organization_id = $1 ORDER BY created_at ASC`, orgID)
	if err != nil {
		return nil, translate(err, "list projects")
	}
	return projects, nil
}

func (db *PostgresDatabase) UpdateProject(ctx context.Context, p *models.Project) error {
	const q = `UPDATE projects SET name = $2 WHERE id = $1 RETURNING organization_id, created_at`
	err := db.db.QueryRowxContext(ctx, q, p.ID, p.Name).Scan(&p.OrganizationID, &p.CreatedAt)
	return translate(err, "update project")
}

func (db *PostgresDatabase) DeleteProject(ctx context.Context, id string) (int64, error) {
	res, err := db.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	return rowsAffected(res, err, "delete project")
}

// ==== tasks ====

const taskColumns = `id, project_id, assignee_id, name, description, status, color, due_date, created_at, updated_at`

func (db *PostgresDatabase) CreateTask(ctx context.Context, t *models.Task) error {
	const q = `
		INSERT INTO tasks (project_id, assignee_id, name, description, status, color, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	err := db.db.QueryRowxContext(ctx, q, t.ProjectID, t.AssigneeID, t.Name, t.Description, t.Status, t.Color, t.DueDate).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	return translate(err, "create task")
}

func (db *PostgresDatabase) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var t models.Task
	err := db.db.GetContext(ctx, &t, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	if err != nil {
		return nil, translate(err, "get task")
	}
	return &t, nil
}

func (db *PostgresDatabase) ListProjectTasks(ctx context.Context, projectID string) ([]models.TaskWithAssignee, error) {
	const q = `
		SELECT t.id, t.project_id, t.assignee_id, t.name, t.description, t.status, t.color,
		       t.due_date, t.created_at, t.updated_at,
		       u.id, u.username, u.first_name, u.last_name
		FROM tasks t
		JOIN users u ON u.id = t.assignee_id
		WHERE t.project_id = $1
		ORDER BY t.created_at DESC`
	rows, err := db.db.QueryxContext(ctx, q, projectID)
	if err != nil {
		return nil, translate(err, "list project tasks")
	}
	defer rows.Close()

	out := []models.TaskWithAssignee{}
	for rows.Next() {
		var row models.TaskWithAssignee
		var a models.UserSummary
		if err := rows.Scan(&row.ID, &row.ProjectID, &row.AssigneeID, &row.Name, &row.Description,
			&row.Status, &row.Color, &row.DueDate, &row.CreatedAt, &row.UpdatedAt,
			&a.ID, &a.Username, &a.FirstName, &a.LastName); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		row.Assignee = &a
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return out, nil
}

func (db *PostgresDatabase) ListAssignedTasks(ctx context.Context, projectID, assigneeID string) ([]models.Task, error) {
	tasks := []models.Task{}
	err := db.db.SelectContext(ctx, &tasks,
		`SELECT `+taskColumns+` FROM tasks WHERE project_id = $1 AND assignee_id = $2 ORDER BY created_at DESC`,
		projectID, assigneeID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgInvalidTextRepr {
			return tasks, nil
		}
		return nil, translate(err, "list assigned tasks")
	}
	return tasks, nil
}

func (db *PostgresDatabase) UpdateTask(ctx context.Context, t *models.Task) error {
	const q = `
		UPDATE tasks
		SET project_id = $2, assignee_id = $3, name = $4, description = $5,
		    status = $6, color = $7, due_date = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`
	err := db.db.QueryRowxContext(ctx, q, t.ID, t.ProjectID, t.AssigneeID, t.Name, t.Description,
		t.Status, t.Color, t.DueDate).Scan(&t.CreatedAt, &t.UpdatedAt)
	return translate(err, "update task")
}

func (db *PostgresDatabase) DeleteTask(ctx context.Context, id string) (int64, error) {
	res, err := db.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	return rowsAffected(res, err, "delete task")
}

// HealthCheck 健康检查
func (db *PostgresDatabase) HealthCheck(ctx context.Context) error {
	return db.db.PingContext(ctx)
}

// Close 关闭连接
func (db *PostgresDatabase) Close() error {
	return db.db.Close()
}
