package demo

import (
	"errors"

	"github.com/google/uuid"

	"github.com/wynkjs/wynk/pkg/wynk"
	"github.com/wynkjs/wynk/pkg/wynk/guards"
	"github.com/wynkjs/wynk/pkg/wynk/interceptors"
)

// UsersController serves /users
type UsersController struct {
	Users *UserService
}

// List returns a page of users
func (c *UsersController) List(q ListQuery) Page {
	return c.Users.List(q)
}

// FindOne returns a single user
func (c *UsersController) FindOne(id uuid.UUID) (*User, error) {
	u, err := c.Users.Get(id)
	if err != nil {
		return nil, httpError(err)
	}
	return u, nil
}

// Create registers a user and points Location at it
func (c *UsersController) Create(dto CreateUserDTO) (*wynk.Response, error) {
	u, err := c.Users.Create(dto)
	if err != nil {
		return nil, httpError(err)
	}
	return wynk.Created(u).WithHeader("Location", "/users/"+u.ID.String()), nil
}

// Update patches a user
func (c *UsersController) Update(id uuid.UUID, dto UpdateUserDTO) (*User, error) {
	u, err := c.Users.Update(id, dto)
	if err != nil {
		return nil, httpError(err)
	}
	return u, nil
}

// Remove deletes a user
func (c *UsersController) Remove(id uuid.UUID) error {
	if err := c.Users.Delete(id); err != nil {
		return httpError(err)
	}
	return nil
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return wynk.NotFound("User not found").WithCause(err)
	case errors.Is(err, ErrEmailTaken):
		return wynk.Conflict("Email already registered").WithCause(err)
	}
	return err
}

// Controller declares the users routes. Reads are public, writes need the
// admin role once a JWT guard is installed.
func Controller() *wynk.ControllerBuilder[*UsersController] {
	return wynk.NewController[*UsersController]("/users").
		UseInterceptors(interceptors.Timing()).
		Get("/", (*UsersController).List,
			wynk.WithQuery(ListQuery{}), wynk.Args(wynk.Query()), guards.Public()).
		Get("/{id:uuid}", (*UsersController).FindOne,
			wynk.Args(wynk.Param("id")), guards.Public()).
		Post("/", (*UsersController).Create,
			wynk.WithBody(CreateUserDTO{}), wynk.Args(wynk.Body()), guards.RequireRoles("admin")).
		Patch("/{id:uuid}", (*UsersController).Update,
			wynk.WithBody(UpdateUserDTO{}), wynk.Args(wynk.Param("id"), wynk.Body()), guards.RequireRoles("admin")).
		Delete("/{id:uuid}", (*UsersController).Remove,
			wynk.Args(wynk.Param("id")), guards.RequireRoles("admin"))
}
