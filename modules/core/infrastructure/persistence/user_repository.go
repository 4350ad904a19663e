package persistence

import (
	"context"
	"fmt"

	"github.com/opswell/adminkit/modules/core/domain/entities/user"
	"github.com/opswell/adminkit/modules/core/infrastructure/persistence/models"
	"github.com/opswell/adminkit/pkg/composables"
)

var ErrUserNotFound = fmt.Errorf("user not found")

const userFindQuery = `SELECT id, first_name, last_name, email, is_admin FROM users`

// UserRepository is read-only: users are owned by the external identity
// system and only referenced here.
type UserRepository struct{}

func NewUserRepository() user.Repository {
	return &UserRepository{}
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*user.User, error) {
	users, err := r.queryUsers(ctx, userFindQuery+" WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrUserNotFound
	}
	return users[0], nil
}

func (r *UserRepository) GetByIDs(ctx context.Context, ids []uint) ([]*user.User, error) {
	if len(ids) == 0 {
		return []*user.User{}, nil
	}
	return r.queryUsers(ctx, userFindQuery+" WHERE id = ANY($1)", ids)
}

func (r *UserRepository) Exists(ctx context.Context, id uint) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *UserRepository) queryUsers(ctx context.Context, query string, args ...any) ([]*user.User, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*user.User
	for rows.Next() {
		var row models.User
		if err := rows.Scan(&row.ID, &row.FirstName, &row.LastName, &row.Email, &row.IsAdmin); err != nil {
			return nil, err
		}
		results = append(results, toDomainUser(&row))
	}
	return results, rows.Err()
}
