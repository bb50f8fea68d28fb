package demo

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestService(t *testing.T) *UserService {
	s := NewUserService(zaptest.NewLogger(t))
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func TestUserService_CreateAndGet(t *testing.T) {
	s := newTestService(t)

	u, err := s.Create(CreateUserDTO{Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, u.ID)
	assert.Equal(t, u.CreatedAt, u.UpdatedAt)

	got, err := s.Get(u.ID)
	require.NoError(t, err)
	assert.Equal(t, u, got)

	_, err = s.Get(uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_EmailUniqueness(t *testing.T) {
	s := newTestService(t)

	first, err := s.Create(CreateUserDTO{Email: "ada@example.com", FirstName: "Ada", LastName: "L"})
	require.NoError(t, err)
	other, err := s.Create(CreateUserDTO{Email: "bob@example.com", FirstName: "Bob", LastName: "B"})
	require.NoError(t, err)

	_, err = s.Create(CreateUserDTO{Email: "ADA@example.com", FirstName: "X", LastName: "Y"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = s.Update(other.ID, UpdateUserDTO{Email: "ada@example.com"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	// keeping your own address is not a conflict
	_, err = s.Update(first.ID, UpdateUserDTO{Email: "ada@example.com"})
	assert.NoError(t, err)
}

func TestUserService_Update(t *testing.T) {
	s := newTestService(t)

	u, err := s.Create(CreateUserDTO{Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"})
	require.NoError(t, err)

	updated, err := s.Update(u.ID, UpdateUserDTO{LastName: "King"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", updated.FirstName)
	assert.Equal(t, "King", updated.LastName)
	assert.True(t, updated.UpdatedAt.After(u.UpdatedAt))
	assert.Equal(t, "Lovelace", u.LastName, "previous snapshot must not change")

	_, err = s.Update(uuid.New(), UpdateUserDTO{LastName: "x"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_Delete(t *testing.T) {
	s := newTestService(t)

	u, err := s.Create(CreateUserDTO{Email: "ada@example.com", FirstName: "Ada", LastName: "L"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(u.ID))
	assert.ErrorIs(t, s.Delete(u.ID), ErrUserNotFound)
	assert.Zero(t, s.List(ListQuery{}).Total)
}

func TestUserService_List(t *testing.T) {
	s := newTestService(t)
	for _, name := range []string{"ada", "bob", "carol", "dave"} {
		_, err := s.Create(CreateUserDTO{Email: name + "@example.com", FirstName: name, LastName: "Example"})
		require.NoError(t, err)
	}

	emails := func(p Page) []string {
		out := make([]string, 0, len(p.Items))
		for _, u := range p.Items {
			out = append(out, u.Email)
		}
		return out
	}

	tests := []struct {
		name     string
		query    ListQuery
		expected []string
		total    int
	}{
		{"all in creation order", ListQuery{}, []string{"ada@example.com", "bob@example.com", "carol@example.com", "dave@example.com"}, 4},
		{"limit", ListQuery{Limit: 2}, []string{"ada@example.com", "bob@example.com"}, 4},
		{"offset", ListQuery{Limit: 2, Offset: 3}, []string{"dave@example.com"}, 4},
		{"offset past end", ListQuery{Offset: 10}, []string{}, 4},
		{"search is case insensitive", ListQuery{Search: "CAROL"}, []string{"carol@example.com"}, 1},
		{"search misses", ListQuery{Search: "zed"}, []string{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := s.List(tt.query)
			assert.Equal(t, tt.expected, emails(page))
			assert.Equal(t, tt.total, page.Total)
		})
	}
}
