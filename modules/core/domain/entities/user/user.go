package user

import "context"

// User is a read model over the external identity system. This core never
// creates or mutates users; it references their ids and resolves display
// facts for audit rendering.
type User struct {
	ID        uint
	FirstName string
	LastName  string
	Email     string
	IsAdmin   bool
}

func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

type Repository interface {
	GetByID(ctx context.Context, id uint) (*User, error)
	GetByIDs(ctx context.Context, ids []uint) ([]*User, error)
	Exists(ctx context.Context, id uint) (bool, error)
}
