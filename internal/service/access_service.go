package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/ctkuo2438/NUboard/internal/config"
	"github.com/ctkuo2438/NUboard/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// AccessService resolves a user's access view through a Redis cache.
// Entries are namespaced by a global and a per-user generation counter. Both
// are read before the store load, so a view loaded before an invalidation is
// written under a key that is no longer read.
type AccessService struct {
	uow UnitOfWork
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
}

// NewAccessService creates a new AccessService.
func NewAccessService(uow UnitOfWork, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *AccessService {
	return &AccessService{
		uow: uow,
		rdb: rdb,
		ttl: ttl,
		log: log.With().Str("component", "access_service").Logger(),
	}
}

// UserAccess returns the cached view of userID, loading it from the store on a miss.
// Cache failures are logged and never fail the lookup. When the generations
// cannot be read the cache is bypassed entirely.
func (s *AccessService) UserAccess(ctx context.Context, userID int64) (model.UserAccessView, error) {
	gen, userGen, ok := s.generations(ctx, userID)
	if !ok {
		return s.load(ctx, userID)
	}
	key := config.CacheKey.UserAccessKey(gen, userGen, userID)

	raw, err := s.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var view model.UserAccessView
		if err := json.Unmarshal(raw, &view); err == nil {
			return view, nil
		}
		s.log.Warn().Str("key", key).Msg("Discarding undecodable access cache entry")
	case !errors.Is(err, redis.Nil):
		s.log.Warn().Err(err).Int64("user_id", userID).Msg("Access cache read failed")
	}

	view, err := s.load(ctx, userID)
	if err != nil {
		return model.UserAccessView{}, err
	}

	payload, err := json.Marshal(view)
	if err == nil {
		err = s.rdb.Set(ctx, key, payload, s.ttl).Err()
	}
	if err != nil {
		s.log.Warn().Err(err).Int64("user_id", userID).Msg("Access cache write failed")
	}
	return view, nil
}

func (s *AccessService) load(ctx context.Context, userID int64) (model.UserAccessView, error) {
	view, err := loadAccessView(ctx, s.uow.Stores(), userID)
	if err != nil {
		out := asServiceError(err)
		if KindOf(out) == KindDatabase {
			s.log.Error().Err(err).Int64("user_id", userID).Msg("Access load failed")
		}
		return model.UserAccessView{}, out
	}
	return view, nil
}

// InvalidateUser retires the cached views of one user by advancing its generation.
func (s *AccessService) InvalidateUser(ctx context.Context, userID int64) {
	if err := s.rdb.Incr(ctx, config.CacheKey.UserGenerationKey(userID)).Err(); err != nil {
		s.log.Warn().Err(err).Int64("user_id", userID).Msg("Access cache invalidation failed")
	}
}

// InvalidateAll retires every cached view by advancing the generation.
func (s *AccessService) InvalidateAll(ctx context.Context) {
	if err := s.rdb.Incr(ctx, config.CacheKey.AccessGenerationKey()).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Access cache generation bump failed")
	}
}

func (s *AccessService) generations(ctx context.Context, userID int64) (gen, userGen int64, ok bool) {
	vals, err := s.rdb.MGet(ctx,
		config.CacheKey.AccessGenerationKey(),
		config.CacheKey.UserGenerationKey(userID),
	).Result()
	if err != nil {
		s.log.Warn().Err(err).Int64("user_id", userID).Msg("Access cache generation read failed")
		return 0, 0, false
	}
	return parseGeneration(vals[0]), parseGeneration(vals[1]), true
}

// parseGeneration reads one MGET slot; a missing counter is generation zero.
func parseGeneration(v interface{}) int64 {
	str, ok := v.(string)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
