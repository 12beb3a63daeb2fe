package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"taskboard-backend/pkg/models"

	"github.com/google/uuid"
)

// MemoryDatabase 内存数据库实现
//
// Each entity type lives in its own id-indexed map; references between entities are
// plain id fields resolved through lookups. Uniqueness and cascade rules mirror the
// PostgreSQL schema.
type MemoryDatabase struct {
	mu            sync.RWMutex
	users         map[string]models.User
	organizations map[string]models.Organization
	memberships   map[string]models.Membership
	projects      map[string]models.Project
	tasks         map[string]models.Task

	// now is swappable so tests get strictly increasing timestamps.
	now func() time.Time
}

// NewMemoryDatabase 创建内存数据库实例
func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		users:         make(map[string]models.User),
		organizations: make(map[string]models.Organization),
		memberships:   make(map[string]models.Membership),
		projects:      make(map[string]models.Project),
		tasks:         make(map[string]models.Task),
		now:           monotonicClock(),
	}
}

// monotonicClock never returns the same instant twice, so created_at ordering is total.
func monotonicClock() func() time.Time {
	var last time.Time
	var mu sync.Mutex
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := time.Now().UTC()
		if !t.After(last) {
			t = last.Add(time.Microsecond)
		}
		last = t
		return t
	}
}

// ==== users ====

func (db *MemoryDatabase) CreateUser(_ context.Context, user *models.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.checkUserUnique(user, ""); err != nil {
		return err
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = db.now()
	user.UpdatedAt = user.CreatedAt
	db.users[user.ID] = *user
	return nil
}

func (db *MemoryDatabase) checkUserUnique(user *models.User, selfID string) error {
	for id, u := range db.users {
		if id == selfID {
			continue
		}
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("users.email %q: %w", user.Email, ErrUniqueViolation)
		}
		if u.Username == user.Username {
			return fmt.Errorf("users.username %q: %w", user.Username, ErrUniqueViolation)
		}
	}
	return nil
}

func (db *MemoryDatabase) GetUserByID(_ context.Context, id string) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	u, ok := db.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return &u, nil
}

func (db *MemoryDatabase) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, u := range db.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
}

func (db *MemoryDatabase) UpdateUser(_ context.Context, user *models.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	existing, ok := db.users[user.ID]
	if !ok {
		return fmt.Errorf("user %s: %w", user.ID, ErrNotFound)
	}
	if err := db.checkUserUnique(user, user.ID); err != nil {
		return err
	}
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = db.now()
	db.users[user.ID] = *user
	return nil
}

func (db *MemoryDatabase) DeleteUser(_ context.Context, id string) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.users[id]; !ok {
		return 0, nil
	}
	delete(db.users, id)
	for orgID, org := range db.organizations {
		if org.OwnerID == id {
			db.deleteOrganizationLocked(orgID)
		}
	}
	for mID, m := range db.memberships {
		if m.UserID == id {
			delete(db.memberships, mID)
		}
	}
	for tID, t := range db.tasks {
		if t.AssigneeID == id {
			delete(db.tasks, tID)
		}
	}
	return 1, nil
}

func (db *MemoryDatabase) SearchUsers(_ context.Context, q string, limit, offset int) ([]models.User, int, error) {
	if limit < 0 || offset < 0 {
		return nil, 0, fmt.Errorf("search users: negative limit or offset")
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	needle := strings.ToLower(q)
	var matched []models.User
	for _, u := range db.users {
		if strings.Contains(strings.ToLower(u.FirstName), needle) ||
			strings.Contains(strings.ToLower(u.LastName), needle) ||
			strings.Contains(strings.ToLower(u.Username), needle) {
			matched = append(matched, u)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })

	total := len(matched)
	if offset >= total {
		return []models.User{}, total, nil
	}
	end := offset + limit
	if end > total || end < offset {
		end = total
	}
	return matched[offset:end], total, nil
}

// ==== organizations ====

func (db *MemoryDatabase) CreateOrganization(_ context.Context, org *models.Organization) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.users[org.OwnerID]; !ok {
		return fmt.Errorf("organization owner %s: %w", org.OwnerID, ErrNotFound)
	}
	if org.ID == "" {
		org.ID = uuid.New().String()
	}
	org.CreatedAt = db.now()
	db.organizations[org.ID] = *org
	return nil
}

func (db *MemoryDatabase) GetOrganization(_ context.Context, id string) (*models.Organization, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	org, ok := db.organizations[id]
	if !ok {
		return nil, fmt.Errorf("organization %s: %w", id, ErrNotFound)
	}
	return &org, nil
}

func (db *MemoryDatabase) ListOrganizationsByOwner(_ context.Context, ownerID string) ([]models.Organization, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := []models.Organization{}
	for _, org := range db.organizations {
		if org.OwnerID == ownerID {
			out = append(out, org)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (db *MemoryDatabase) UpdateOrganization(_ context.Context, org *models.Organization) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	existing, ok := db.organizations[org.ID]
	if !ok {
		return fmt.Errorf("organization %s: %w", org.ID, ErrNotFound)
	}
	// owner and creation time are immutable
	existing.Name = org.Name
	db.organizations[org.ID] = existing
	*org = existing
	return nil
}

func (db *MemoryDatabase) DeleteOrganization(_ context.Context, id string) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.organizations[id]; !ok {
		return 0, nil
	}
	db.deleteOrganizationLocked(id)
	return 1, nil
}

func (db *MemoryDatabase) deleteOrganizationLocked(id string) {
	delete(db.organizations, id)
	for mID, m := range db.memberships {
		if m.OrganizationID == id {
			delete(db.memberships, mID)
		}
	}
	for pID, p := range db.projects {
		if p.OrganizationID == id {
			db.deleteProjectLocked(pID)
		}
	}
}

// ==== memberships ====

func (db *MemoryDatabase) CreateMembership(_ context.Context, m *models.Membership) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.users[m.UserID]; !ok {
		return fmt.Errorf("membership user %s: %w", m.UserID, ErrNotFound)
	}
	if _, ok := db.organizations[m.OrganizationID]; !ok {
		return fmt.Errorf("membership organization %s: %w", m.OrganizationID, ErrNotFound)
	}
	for _, existing := range db.memberships {
		if existing.UserID == m.UserID && existing.OrganizationID == m.OrganizationID {
			return fmt.Errorf("memberships(user_id, organization_id): %w", ErrUniqueViolation)
		}
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.JoinedAt = db.now()
	db.memberships[m.ID] = *m
	return nil
}

func (db *MemoryDatabase) GetMembership(_ context.Context, userID, orgID string) (*models.Membership, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, m := range db.memberships {
		if m.UserID == userID && m.OrganizationID == orgID {
			return &m, nil
		}
	}
	return nil, fmt.Errorf("membership %s/%s: %w", orgID, userID, ErrNotFound)
}

func (db *MemoryDatabase) DeleteMembership(_ context.Context, orgID, userID string) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var affected int64
	for id, m := range db.memberships {
		if m.UserID == userID && m.OrganizationID == orgID {
			delete(db.memberships, id)
			affected++
		}
	}
	return affected, nil
}

func (db *MemoryDatabase) ListOrganizationMembers(_ context.Context, orgID string) ([]models.OrganizationMember, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := []models.OrganizationMember{}
	for _, m := range db.memberships {
		if m.OrganizationID != orgID {
			continue
		}
		u, ok := db.users[m.UserID]
		if !ok {
			continue
		}
		out = append(out, models.OrganizationMember{
			ID:        u.ID,
			Username:  u.Username,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			JoinedAt:  m.JoinedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (db *MemoryDatabase) ListUserMemberships(_ context.Context, userID string) ([]models.MembershipWithOrganization, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := []models.MembershipWithOrganization{}
	for _, m := range db.memberships {
		if m.UserID != userID {
			continue
		}
		org, ok := db.organizations[m.OrganizationID]
		if !ok {
			continue
		}
		out = append(out, models.MembershipWithOrganization{ID: m.ID, JoinedAt: m.JoinedAt, Organization: org})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

// ==== projects ====

func (db *MemoryDatabase) CreateProject(_ context.Context, p *models.Project) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.organizations[p.OrganizationID]; !ok {
		return fmt.Errorf("project organization %s: %w", p.OrganizationID, ErrNotFound)
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedAt = db.now()
	db.projects[p.ID] = *p
	return nil
}

func (db *MemoryDatabase) GetProject(_ context.Context, id string) (*models.Project, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	p, ok := db.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return &p, nil
}

func (db *MemoryDatabase) ListProjectsByOrganization(_ context.Context, orgID string) ([]models.Project, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := []models.Project{}
	for _, p := range db.projects {
		if p.OrganizationID == orgID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (db *MemoryDatabase) UpdateProject(_ context.Context, p *models.Project) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	existing, ok := db.projects[p.ID]
	if !ok {
		return fmt.Errorf("project %s: %w", p.ID, ErrNotFound)
	}
	existing.Name = p.Name
	db.projects[p.ID] = existing
	*p = existing
	return nil
}

func (db *MemoryDatabase) DeleteProject(_ context.Context, id string) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.projects[id]; !ok {
		return 0, nil
	}
	db.deleteProjectLocked(id)
	return 1, nil
}

func (db *MemoryDatabase) deleteProjectLocked(id string) {
	delete(db.projects, id)
	for tID, t := range db.tasks {
		if t.ProjectID == id {
			delete(db.tasks, tID)
		}
	}
}

// ==== tasks ====

func (db *MemoryDatabase) CreateTask(_ context.Context, t *models.Task) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.checkTaskRefs(t); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	t.CreatedAt = db.now()
	t.UpdatedAt = t.CreatedAt
	db.tasks[t.ID] = *t
	return nil
}

func (db *MemoryDatabase) checkTaskRefs(t *models.Task) error {
	if _, ok := db.projects[t.ProjectID]; !ok {
		return fmt.Errorf("task project %s: %w", t.ProjectID, ErrNotFound)
	}
	if _, ok := db.users[t.AssigneeID]; !ok {
		return fmt.Errorf("task assignee %s: %w", t.AssigneeID, ErrNotFound)
	}
	return nil
}

func (db *MemoryDatabase) GetTask(_ context.Context, id string) (*models.Task, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	t, ok := db.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return &t, nil
}

func (db *MemoryDatabase) ListProjectTasks(_ context.Context, projectID string) ([]models.TaskWithAssignee, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := []models.TaskWithAssignee{}
	for _, t := range db.tasks {
		if t.ProjectID != projectID {
			continue
		}
		row := models.TaskWithAssignee{Task: t}
		if u, ok := db.users[t.AssigneeID]; ok {
			summary := u.Summary()
			row.Assignee = &summary
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (db *MemoryDatabase) ListAssignedTasks(_ context.Context, projectID, assigneeID string) ([]models.Task, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := []models.Task{}
	for _, t := range db.tasks {
		if t.ProjectID == projectID && t.AssigneeID == assigneeID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (db *MemoryDatabase) UpdateTask(_ context.Context, t *models.Task) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	existing, ok := db.tasks[t.ID]
	if !ok {
		return fmt.Errorf("task %s: %w", t.ID, ErrNotFound)
	}
	if err := db.checkTaskRefs(t); err != nil {
		return err
	}
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = db.now()
	db.tasks[t.ID] = *t
	return nil
}

func (db *MemoryDatabase) DeleteTask(_ context.Context, id string) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.tasks[id]; !ok {
		return 0, nil
	}
	delete(db.tasks, id)
	return 1, nil
}

// HealthCheck 健康检查
func (db *MemoryDatabase) HealthCheck(_ context.Context) error {
	return nil
}

// Close 关闭连接
func (db *MemoryDatabase) Close() error {
	return nil
}
