package demo

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

const defaultPageSize = 20

// UserService keeps users in memory
type UserService struct {
	mu     sync.RWMutex
	users  map[uuid.UUID]*User
	logger *zap.Logger
	now    func() time.Time
}

// NewUserService creates an empty store
func NewUserService(logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:  make(map[uuid.UUID]*User),
		logger: logger,
		now:    time.Now,
	}
}

// List returns users matching q, ordered by creation time
func (s *UserService) List(q ListQuery) Page {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(q.Search)
	matched := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		if search != "" && !strings.Contains(strings.ToLower(u.Email+" "+u.FirstName+" "+u.LastName), search) {
			continue
		}
		matched = append(matched, u)
	}
	slices.SortFunc(matched, func(a, b *User) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Email, b.Email)
	})

	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	start := min(q.Offset, len(matched))
	end := min(start+limit, len(matched))
	return Page{Items: matched[start:end], Total: len(matched)}
}

// Get retrieves a user by ID
func (s *UserService) Get(id uuid.UUID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// Create stores a new user
func (s *UserService) Create(dto CreateUserDTO) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emailInUse(dto.Email, uuid.Nil) {
		return nil, ErrEmailTaken
	}
	now := s.now()
	u := &User{
		ID:        uuid.New(),
		Email:     dto.Email,
		FirstName: dto.FirstName,
		LastName:  dto.LastName,
		Roles:     dto.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.users[u.ID] = u
	s.logger.Info("user created", zap.Stringer("id", u.ID), zap.String("email", u.Email))
	return u, nil
}

// Update applies the non-empty fields of dto
func (s *UserService) Update(id uuid.UUID, dto UpdateUserDTO) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	if dto.Email != "" && s.emailInUse(dto.Email, id) {
		return nil, ErrEmailTaken
	}

	// copy so readers holding the old pointer never see a partial update
	u := *current
	if dto.Email != "" {
		u.Email = dto.Email
	}
	if dto.FirstName != "" {
		u.FirstName = dto.FirstName
	}
	if dto.LastName != "" {
		u.LastName = dto.LastName
	}
	u.UpdatedAt = s.now()
	s.users[id] = &u
	return &u, nil
}

// Delete removes a user
func (s *UserService) Delete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(s.users, id)
	s.logger.Info("user deleted", zap.Stringer("id", id))
	return nil
}

func (s *UserService) emailInUse(email string, except uuid.UUID) bool {
	for id, u := range s.users {
		if id != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}
