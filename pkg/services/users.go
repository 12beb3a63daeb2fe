package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/models"
)

// SearchPageSize is the fixed page size of user search.
const SearchPageSize = 20

// maxSearchPage keeps the search offset within int.
const maxSearchPage = math.MaxInt / SearchPageSize

// TokenIssuer signs access tokens bound to a user id.
type TokenIssuer interface {
	GenerateAccessToken(userID string) (string, int64, error)
}

// PasswordHasher hashes and verifies passwords with bcrypt.
type PasswordHasher struct {
	cost int
}

func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func (h *PasswordHasher) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// UserSearchResult is one page of user search.
type UserSearchResult struct {
	Data      []models.UserSummary `json:"data"`
	Total     int                  `json:"total"`
	Page      int                  `json:"page"`
	PageCount int                  `json:"pageCount"`
}

// UserService handles accounts and credentials.
type UserService struct {
	db     database.DatabaseInterface
	hasher *PasswordHasher
	tokens TokenIssuer
}

func NewUserService(db database.DatabaseInterface, hasher *PasswordHasher, tokens TokenIssuer) *UserService {
	return &UserService{db: db, hasher: hasher, tokens: tokens}
}

// SignUp creates an account. Email and username must be unused.
func (s *UserService) SignUp(ctx context.Context, req models.UserRegisterRequest) (*models.User, error) {
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Password:  hash,
	}
	if err := s.db.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrUniqueViolation) {
			return nil, conflict("Email or username already in use")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login checks credentials and issues an access token. An unknown email is a
// validation error; a wrong password is unauthenticated.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.UserLoginResponse, error) {
	user, err := s.db.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, database.ErrNotFound) {
		return nil, validationError("Invalid email")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !s.hasher.Compare(user.Password, password) {
		return nil, newError(ErrUnauthenticated, "Invalid credentials")
	}

	token, expiresIn, err := s.tokens.GenerateAccessToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &models.UserLoginResponse{AccessToken: token, ExpiresIn: expiresIn}, nil
}

// Me returns the caller's account.
func (s *UserService) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.db.GetUserByID(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, notFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateMe applies the present fields of patch to the caller's account.
func (s *UserService) UpdateMe(ctx context.Context, userID string, patch models.UserPatch) (*models.User, error) {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	if patch.Username != nil {
		user.Username = *patch.Username
	}
	if patch.FirstName != nil {
		user.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		user.LastName = *patch.LastName
	}
	if patch.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*patch.Email))
	}
	if patch.Password != nil {
		hash, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			return nil, err
		}
		user.Password = hash
	}

	if err := s.db.UpdateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, database.ErrUniqueViolation):
			return nil, conflict("Email or username already in use")
		case errors.Is(err, database.ErrNotFound):
			return nil, notFound("User not found")
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// DeleteMe removes the caller's account together with the organizations they own,
// their memberships and their assigned tasks.
func (s *UserService) DeleteMe(ctx context.Context, userID string) error {
	n, err := s.db.DeleteUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n == 0 {
		return notFound("User not found")
	}
	return nil
}

// Search returns one page of users whose first name, last name or username
// contains q. Pages start at 1.
func (s *UserService) Search(ctx context.Context, q string, page int) (*UserSearchResult, error) {
	if page < 1 {
		page = 1
	}
	if page > maxSearchPage {
		page = maxSearchPage
	}
	users, total, err := s.db.SearchUsers(ctx, strings.TrimSpace(q), SearchPageSize, (page-1)*SearchPageSize)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	out := make([]models.UserSummary, 0, len(users))
	for i := range users {
		out = append(out, users[i].Summary())
	}
	return &UserSearchResult{
		Data:      out,
		Total:     total,
		Page:      page,
		PageCount: (total + SearchPageSize - 1) / SearchPageSize,
	}, nil
}
