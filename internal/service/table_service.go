package service

import (
	"context"

	"github.com/datasynth/api/internal/database"
	"github.com/datasynth/api/internal/errs"
)

// TableBrowser reads back generated tables
type TableBrowser interface {
	ListTables(ctx context.Context) ([]string, error)
	TableRows(ctx context.Context, table string, limit int) ([]map[string]any, error)
	TableColumns(ctx context.Context, table string) ([]database.Column, error)
}

// TableService exposes generated tables to the API
type TableService struct {
	store TableBrowser
}

func NewTableService(store TableBrowser) *TableService {
	return &TableService{store: store}
}

func (s *TableService) List(ctx context.Context) ([]string, error) {
	if s.store == nil {
		return nil, errs.ErrNotConfigured
	}
	return s.store.ListTables(ctx)
}

func (s *TableService) Rows(ctx context.Context, table string, limit int) ([]map[string]any, error) {
	if s.store == nil {
		return nil, errs.ErrNotConfigured
	}
	if err := database.ValidateTableName(table); err != nil {
		return nil, err
	}
	return s.store.TableRows(ctx, table, limit)
}

func (s *TableService) Columns(ctx context.Context, table string) ([]database.Column, error) {
	if s.store == nil {
		return nil, errs.ErrNotConfigured
	}
	if err := database.ValidateTableName(table); err != nil {
		return nil, err
	}
	return s.store.TableColumns(ctx, table)
}
