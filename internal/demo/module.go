package demo

import (
	"go.uber.org/zap"

	"github.com/wynkjs/wynk/pkg/inject"
)

// Provide registers the users service and controller in c
func Provide(c *inject.Container, logger *zap.Logger) error {
	err := inject.Provide(c, func(inject.Resolver) (*UserService, error) {
		return NewUserService(logger.Named("users")), nil
	})
	if err != nil {
		return err
	}
	return inject.Provide(c, func(r inject.Resolver) (*UsersController, error) {
		users, err := inject.Resolve[*UserService](r)
		if err != nil {
			return nil, err
		}
		return &UsersController{Users: users}, nil
	})
}
