package permission

import "context"

type Permission struct {
	ID   uint
	Name string
	Slug string
}

type Repository interface {
	GetAll(ctx context.Context) ([]*Permission, error)
	GetBySlugs(ctx context.Context, slugs []string) ([]*Permission, error)
	Save(ctx context.Context, p *Permission) error
}
