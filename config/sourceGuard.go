package config

import (
	"context"
	"errors"
	"strings"

	"bitbucket.org/agasretail/erpsync_backend/appctx"
	"gorm.io/gorm"
)

// ErrReadOnlySource is returned for writes against synced source tables.
var ErrReadOnlySource = errors.New("sale_lines and stock_movements are read-only outside ingestion")

// SourceGuardPlugin enforces that synced source tables stay read-only:
// reconciliation derives new values, it never writes sale lines or
// stock movements back.
//
// NOTE:
// - This does NOT apply to Raw SQL. Raw statements must respect the
//   same rule manually.
// - Ingestion bypass is explicit via the internal-ops context flag.
type SourceGuardPlugin struct{}

func NewSourceGuardPlugin() *SourceGuardPlugin { return &SourceGuardPlugin{} }

func (p *SourceGuardPlugin) Name() string { return "source_guard" }

var guardedSourceTables = map[string]bool{
	"sale_lines":      true,
	"stock_movements": true,
}

func (p *SourceGuardPlugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Create().Before("gorm:create").Register("source_guard:create", sourceGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register("source_guard:update", sourceGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register("source_guard:delete", sourceGuardCallback); err != nil {
		return err
	}
	return nil
}

func sourceGuardCallback(db *gorm.DB) {
	if db == nil || db.Statement == nil {
		return
	}

	table := db.Statement.Table
	if table == "" && db.Statement.Schema != nil {
		table = db.Statement.Schema.Table
	}
	if !guardedSourceTables[strings.ToLower(table)] {
		return
	}

	ctx := db.Statement.Context
	if ctx != nil && internalOpsFromContext(ctx) {
		return
	}

	_ = db.AddError(ErrReadOnlySource)
}

func internalOpsFromContext(ctx context.Context) bool {
	if v, ok := ctx.Value(appctx.ContextKeyInternalOps).(bool); ok && v {
		return true
	}
	return false
}
