package services

import (
	"context"
	"time"

	"github.com/zktaccess/zktadmin/internal/client/client"
	"github.com/zktaccess/zktadmin/internal/client/logfilter"
	"github.com/zktaccess/zktadmin/internal/client/models"
	"github.com/zktaccess/zktadmin/internal/logging"
)

// LogService reads, filters and clears the audit log.
type LogService interface {
	List(ctx context.Context) ([]models.LogEntry, error)
	Clear(ctx context.Context, confirm ConfirmFunc) error
	Filter(entries []models.LogEntry, q logfilter.Query) []models.LogEntry
}

type logService struct {
	client client.Client
	loc    *time.Location
	logger logging.Logger
}

// NewLogService constructs a LogService whose date filters use loc
// (time.Local when nil).
func NewLogService(c client.Client, loc *time.Location, logger logging.Logger) LogService {
	if loc == nil {
		loc = time.Local
	}
	return &logService{client: c, loc: loc, logger: logger.With("component", "logs")}
}

func (s *logService) List(ctx context.Context) ([]models.LogEntry, error) {
	return s.client.ListLogs(ctx)
}

func (s *logService) Clear(ctx context.Context, confirm ConfirmFunc) error {
	if !confirm("Are you sure you want to clear all logs?") {
		return ErrNotConfirmed
	}
	if err := s.client.ClearLogs(ctx); err != nil {
		return err
	}
	s.logger.Info(ctx, "audit log cleared")
	return nil
}

func (s *logService) Filter(entries []models.LogEntry, q logfilter.Query) []models.LogEntry {
	return logfilter.Filter(entries, q, s.loc)
}
