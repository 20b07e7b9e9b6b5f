package mcp

import (
	"context"
	"time"

	"github.com/claude/rehabreps/internal/models"
	"github.com/claude/rehabreps/internal/storage"
	"github.com/google/uuid"
)

// DataSource abstracts the data layer for MCP tools. Both *storage.DB (local)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	QuerySessions(ctx context.Context, start, end time.Time, exercise string) ([]models.SessionRow, error)
	GetSession(ctx context.Context, id uuid.UUID) (*storage.SessionDetail, error)
	GetDataStats(ctx context.Context) (*storage.DataStats, error)
	Exercises(ctx context.Context) ([]string, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)
