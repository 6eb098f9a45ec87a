package http

import (
	"context"
	"net/http"
	"net/url"

	"github.com/manyblack/studio/pkg/client"
	"github.com/manyblack/studio/pkg/domain"
	"github.com/manyblack/studio/pkg/ports"
)

// RemoteCatalog is a catalog served by another Studio instance.
//
// Status codes map back onto the port's errors through client.APIError, so 404, 409 and
// 422 satisfy errors.Is with domain.ErrNotFound, domain.ErrDuplicateID and domain.ErrInvalid.
type RemoteCatalog[T domain.Record] struct {
	client *client.Client
	base   string
}

var (
	_ ports.Catalog[domain.Automation] = (*RemoteCatalog[domain.Automation])(nil)
	_ ports.Catalog[domain.Procedure]  = (*RemoteCatalog[domain.Procedure])(nil)
)

// NewRemoteCatalog returns the catalog name served behind c.
func NewRemoteCatalog[T domain.Record](c *client.Client, name domain.CatalogName) *RemoteCatalog[T] {
	return &RemoteCatalog[T]{client: c, base: "/api/catalog/" + string(name)}
}

func (c *RemoteCatalog[T]) path(id string) string {
	return c.base + "/" + url.PathEscape(id)
}

func (c *RemoteCatalog[T]) List(ctx context.Context) ([]T, error) {
	var recs []T
	err := c.client.Do(ctx, http.MethodGet, c.base, nil, nil, &recs)
	return recs, err
}

func (c *RemoteCatalog[T]) Get(ctx context.Context, id string) (T, error) {
	var rec T
	err := c.client.Do(ctx, http.MethodGet, c.path(id), nil, nil, &rec)
	return rec, err
}

func (c *RemoteCatalog[T]) Add(ctx context.Context, rec T) error {
	return c.client.Do(ctx, http.MethodPost, c.base, nil, rec, nil)
}

func (c *RemoteCatalog[T]) Update(ctx context.Context, id string, rec T) error {
	return c.client.Do(ctx, http.MethodPut, c.path(id), nil, rec, nil)
}

func (c *RemoteCatalog[T]) Delete(ctx context.Context, id string) error {
	return c.client.Do(ctx, http.MethodDelete, c.path(id), nil, nil, nil)
}

func (c *RemoteCatalog[T]) Reset(ctx context.Context) (domain.Backup, error) {
	var b domain.Backup
	err := c.client.Do(ctx, http.MethodPost, c.base+"/reset", nil, nil, &b)
	return b, err
}

func (c *RemoteCatalog[T]) Backups(ctx context.Context) ([]domain.Backup, error) {
	var out []domain.Backup
	err := c.client.Do(ctx, http.MethodGet, c.base+"/backups", nil, nil, &out)
	return out, err
}

func (c *RemoteCatalog[T]) Restore(ctx context.Context, backupID string) error {
	return c.client.Do(ctx, http.MethodPost, c.base+"/backups/"+url.PathEscape(backupID)+"/restore", nil, nil, nil)
}
