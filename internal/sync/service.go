package sync

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/config"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/db"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/logger"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/model"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/sheet"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/pkg/errors"
)

// TokenSource yields valid access tokens and supports a forced refresh.
// Implemented by session.Manager.
type TokenSource interface {
	Token(ctx context.Context, sessionID string) (string, error)
	Refresher
}

// SheetWriter issues one grouped write toward the mirror. Implemented by
// sheet.Client.
type SheetWriter interface {
	BatchWrite(ctx context.Context, token, spreadsheetID string, writes []sheet.ValueWrite) error
}

// Service is the batch sync executor: it drains pending records, resolves
// their cell addresses, groups them by sheet tab, and issues sequential
// grouped writes through the retry wrapper. Statuses are written back once
// per completed group.
type Service struct {
	cfg     *config.Config
	repo    db.Repository
	creds   TokenSource
	client  SheetWriter
	retrier *Retrier
	log     zerolog.Logger
}

func NewService(cfg *config.Config, repo db.Repository, creds TokenSource, client SheetWriter) *Service {
	return &Service{
		cfg:     cfg,
		repo:    repo,
		creds:   creds,
		client:  client,
		retrier: NewRetrier(cfg, creds),
		log:     logger.Get(),
	}
}

// SyncPending syncs every unsynced record of one kind for the owner.
func (s *Service) SyncPending(ctx context.Context, sessionID string, ownerID int64, kind model.RecordKind) (model.SyncResult, error) {
	records, err := s.repo.GetUnsyncedRecords(ctx, ownerID, kind)
	if err != nil {
		return model.SyncResult{}, err
	}
	return s.Sync(ctx, sessionID, ownerID, records)
}

// RetryFailed re-syncs records that previously failed. Invoked only by an
// explicit user action, never by a background loop.
func (s *Service) RetryFailed(ctx context.Context, sessionID string, ownerID int64, kind model.RecordKind) (model.SyncResult, error) {
	records, err := s.repo.GetFailedRecords(ctx, ownerID, kind)
	if err != nil {
		return model.SyncResult{}, err
	}
	return s.Sync(ctx, sessionID, ownerID, records)
}

// sheetGroup collects the writes and record ids destined for one sheet tab.
type sheetGroup struct {
	writes []sheet.ValueWrite
	ids    map[model.RecordKind][]int64
}

func (g *sheetGroup) size() int {
	n := 0
	for _, ids := range g.ids {
		n += len(ids)
	}
	return n
}

// Sync mirrors the given records into the owner's spreadsheet. The batch is
// all-or-nothing per sheet group: a failing group marks only its own records
// failed, groups already written stay synced. The returned error is non-nil
// only when no group could be written at all.
func (s *Service) Sync(ctx context.Context, sessionID string, ownerID int64, records []model.SyncRecord) (model.SyncResult, error) {
	result := model.SyncResult{TotalRecords: len(records)}
	if len(records) == 0 {
		return result, errors.ErrNothingToSync
	}

	sheetCfg, err := s.repo.GetSheetConfig(ctx, ownerID)
	if err != nil {
		return result, err
	}

	groups, order, err := s.buildGroups(ctx, sheetCfg, records, &result)
	if err != nil {
		return result, err
	}
	if len(order) == 0 {
		s.log.Warn().Int64("owner_id", ownerID).Int("skipped", result.SkippedCount).Msg("No records could be resolved to a cell address")
		return result, nil
	}

	var firstErr error
	succeeded := 0
	for i, name := range order {
		group := groups[name]

		writeErr := s.retrier.Run(ctx, sessionID, func(ctx context.Context) error {
			token, tokenErr := s.creds.Token(ctx, sessionID)
			if tokenErr != nil {
				return tokenErr
			}
			return s.client.BatchWrite(ctx, token, sheetCfg.SpreadsheetID, group.writes)
		})

		if writeErr == nil {
			if err := s.markGroupSynced(ctx, group); err != nil {
				return result, err
			}
			result.SyncedCount += group.size()
			succeeded++
			continue
		}

		if firstErr == nil {
			firstErr = writeErr
		}
		s.markGroupFailed(ctx, group, writeErr.Error(), &result)
		s.log.Error().Err(writeErr).Str("sheet", name).Msg("Grouped write failed")

		// An expired session dooms every remaining group; mark them failed
		// with the same message instead of hammering the service.
		if errors.IsSessionExpired(writeErr) {
			for _, rest := range order[i+1:] {
				s.markGroupFailed(ctx, groups[rest], writeErr.Error(), &result)
			}
			break
		}
	}

	if succeeded == 0 && firstErr != nil {
		if errors.IsSessionExpired(firstErr) {
			return result, firstErr
		}
		return result, errors.NewSyncError(firstErr, "no sheet group could be written")
	}

	return result, nil
}

func (s *Service) buildGroups(ctx context.Context, sheetCfg *model.SheetConfig, records []model.SyncRecord, result *model.SyncResult) (map[string]*sheetGroup, []string, error) {
	groups := make(map[string]*sheetGroup)
	var order []string
	placements := make(map[int64]*model.SubjectPlacement)

	for _, rec := range records {
		placement, ok := placements[rec.SubjectID]
		if !ok {
			var err error
			placement, err = s.repo.GetSubjectPlacement(ctx, rec.SubjectID)
			if err == errors.ErrSubjectNotFound {
				s.log.Warn().Int64("record_id", rec.ID).Int64("student_id", rec.SubjectID).Msg("Subject unresolvable, skipping record")
				result.SkippedCount++
				continue
			}
			if err != nil {
				return nil, nil, err
			}
			placements[rec.SubjectID] = placement
		}

		addr, err := sheet.ResolveAddress(sheetCfg, placement, rec)
		if err != nil {
			s.log.Warn().Err(err).Int64("record_id", rec.ID).Msg("Address unresolvable, skipping record")
			result.SkippedCount++
			continue
		}

		group, ok := groups[addr.SheetName]
		if !ok {
			group = &sheetGroup{ids: make(map[model.RecordKind][]int64)}
			groups[addr.SheetName] = group
			order = append(order, addr.SheetName)
		}
		group.writes = append(group.writes, sheet.ValueWrite{Ref: addr.Ref(), Value: rec.Value})
		group.ids[rec.Kind] = append(group.ids[rec.Kind], rec.ID)
	}

	return groups, order, nil
}

func (s *Service) markGroupSynced(ctx context.Context, group *sheetGroup) error {
	for kind, ids := range group.ids {
		if err := s.repo.MarkRecordsSynced(ctx, kind, ids); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) markGroupFailed(ctx context.Context, group *sheetGroup, message string, result *model.SyncResult) {
	for kind, ids := range group.ids {
		if err := s.repo.MarkRecordsFailed(ctx, kind, ids, message); err != nil {
			s.log.Error().Err(err).Msg("Failed to persist failure status")
		}
		result.FailedCount += len(ids)
	}
}
