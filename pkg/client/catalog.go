package client

import (
	"context"
	"net/http"
)

// CatalogStats is the backend's view of the two catalog files.
type CatalogStats struct {
	AutomationsCount int  `json:"automations_count"`
	ProceduresCount  int  `json:"procedures_count"`
	CatalogEmpty     bool `json:"catalog_empty"`
	ProceduresEmpty  bool `json:"procedures_empty"`
}

// CatalogBackup is the answer of POST /api/catalog/backup.
type CatalogBackup struct {
	Success    bool   `json:"success"`
	BackupPath string `json:"backup_path"`
	Message    string `json:"message"`
}

// CatalogReset is the answer of POST /api/catalog/reset.
type CatalogReset struct {
	Success      bool           `json:"success"`
	BackupPath   string         `json:"backup_path"`
	ResetResults map[string]any `json:"reset_results"`
	Message      string         `json:"message"`
}

type saveRequest struct {
	Content string `json:"content"`
}

// CatalogStats fetches the backend catalog counts.
func (c *Client) CatalogStats(ctx context.Context) (CatalogStats, error) {
	var s CatalogStats
	err := c.Do(ctx, http.MethodGet, "/api/catalog/stats", nil, nil, &s)
	return s, err
}

// CatalogBackup asks the backend to copy its catalog files aside.
func (c *Client) CatalogBackup(ctx context.Context) (CatalogBackup, error) {
	var b CatalogBackup
	err := c.Do(ctx, http.MethodPost, "/api/catalog/backup", nil, nil, &b)
	return b, err
}

// CatalogReset backs up and empties both backend catalogs.
func (c *Client) CatalogReset(ctx context.Context) (CatalogReset, error) {
	var r CatalogReset
	err := c.Do(ctx, http.MethodPost, "/api/catalog/reset", nil, nil, &r)
	return r, err
}

// SaveCatalog replaces the backend automations file with a YAML document.
func (c *Client) SaveCatalog(ctx context.Context, content string) error {
	return c.Do(ctx, http.MethodPost, "/api/catalog/save", nil, saveRequest{Content: content}, nil)
}

// SaveProcedures replaces the backend procedures file with a YAML document.
func (c *Client) SaveProcedures(ctx context.Context, content string) error {
	return c.Do(ctx, http.MethodPost, "/api/catalog/save-procedures", nil, saveRequest{Content: content}, nil)
}
