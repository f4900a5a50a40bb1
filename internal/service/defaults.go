package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"roadsheet/internal/domain"
	internalRedis "roadsheet/internal/redis"
	"roadsheet/internal/repository"
)

// DefaultsService decides, for a driver and an encoding mode, whether an
// in-flight shift should be resumed or a blank new sheet suggested.
type DefaultsService struct {
	shiftRepo repository.ShiftRepository
	shifts    *ShiftService
	cache     internalRedis.CacheStoreInterface
	log       zerolog.Logger
}

// NewDefaultsService creates a new DefaultsService. cache may be nil.
func NewDefaultsService(
	shiftRepo repository.ShiftRepository,
	shifts *ShiftService,
	cache internalRedis.CacheStoreInterface,
	log zerolog.Logger,
) *DefaultsService {
	return &DefaultsService{shiftRepo: shiftRepo, shifts: shifts, cache: cache, log: log}
}

// Suggestions is the blank-slate payload offered when no shift is resumed.
type Suggestions struct {
	VehicleID   string // from the driver's most recently validated shift
	ServiceDate time.Time

	// BlankFields marks deferred-mode encoding, where form fields must start
	// empty even though a suggestion is available.
	BlankFields bool
}

// DefaultsResult is either a resumable shift (with everything it owns, so
// the caller can restore its session exactly) or suggestions for a new one.
type DefaultsResult struct {
	Resume      bool
	Shift       *ShiftDetail
	Suggestions *Suggestions
}

// Resolve consults the driver's open-shift state under the given mode.
// Deferred-mode entries are never auto-resumed, even when an open shift
// exists: the mode implies after-the-fact encoding.
func (s *DefaultsService) Resolve(ctx context.Context, driverID string, mode domain.EncodingMode) (*DefaultsResult, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	switch mode {
	case domain.EncodingModeLive:
		active, err := s.shiftRepo.FindActiveByDriver(ctx, driverID, mode)
		if err != nil {
			return nil, err
		}
		if active != nil {
			detail, err := s.shifts.GetDetail(ctx, active.ID)
			if err != nil {
				return nil, err
			}
			return &DefaultsResult{Resume: true, Shift: detail}, nil
		}
		suggestions, err := s.suggest(ctx, driverID, false)
		if err != nil {
			return nil, err
		}
		return &DefaultsResult{Suggestions: suggestions}, nil

	case domain.EncodingModeDeferred:
		suggestions, err := s.suggest(ctx, driverID, true)
		if err != nil {
			return nil, err
		}
		return &DefaultsResult{Suggestions: suggestions}, nil

	default:
		return nil, invalidField("mode", "must be LIVE or DEFERRED")
	}
}

// suggest derives blank-slate suggestions from the driver's most recently
// validated shift, going through the cache when one is wired.
func (s *DefaultsService) suggest(ctx context.Context, driverID string, blankFields bool) (*Suggestions, error) {
	// Built from calendar components so the suggested date is today in the
	// server's zone, not the UTC day.
	now := time.Now()
	suggestions := &Suggestions{
		ServiceDate: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()),
		BlankFields: blankFields,
	}

	if s.cache != nil {
		cached, err := s.cache.GetSuggestion(ctx, driverID)
		if err != nil {
			s.log.Warn().Err(err).Str("driver_id", driverID).Msg("suggestion cache read failed")
		} else if cached != nil {
			suggestions.VehicleID = cached.VehicleID
			return suggestions, nil
		}
	}

	latest, err := s.shiftRepo.FindLatestValidatedByDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if latest != nil {
		suggestions.VehicleID = latest.VehicleID
	}

	if s.cache != nil && suggestions.VehicleID != "" {
		_ = s.cache.SetSuggestion(ctx, &internalRedis.CachedSuggestion{
			DriverID:  driverID,
			VehicleID: suggestions.VehicleID,
		})
	}

	return suggestions, nil
}
