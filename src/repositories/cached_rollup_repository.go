package repositories

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"invitationmetrics/src/domain"
	"invitationmetrics/src/domain/entities"
	"invitationmetrics/src/helper/calendar"
	"invitationmetrics/src/infra/redis"
)

// CachedRollupRepository faz cache das leituras de rollups no Redis. A chave
// de cache inclui a versão da conta, incrementada a cada regravação de
// rollups: um SET assíncrono de uma leitura anterior à escrita cai numa
// versão que ninguém mais lê. As chaves também ficam no registry da conta,
// apagado na regravação. Sem cliente Redis, o repositório apenas delega.
type CachedRollupRepository struct {
	logger           *slog.Logger
	rollupRepository *RollupRepository
	redisClient      *redis.RedisClient
}

func NewCachedRollupRepository(
	logger *slog.Logger,
	rollupRepository *RollupRepository,
	redisClient *redis.RedisClient,
) *CachedRollupRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &CachedRollupRepository{
		logger:           logger,
		rollupRepository: rollupRepository,
		redisClient:      redisClient,
	}
}

func (r *CachedRollupRepository) UpsertRollups(ctx context.Context, rollups []entities.DailyRollup) error {
	if err := r.rollupRepository.UpsertRollups(ctx, rollups); err != nil {
		return err
	}

	if r.redisClient == nil || len(rollups) == 0 {
		return nil
	}

	// A escrita já foi confirmada; falha de invalidação só é logada e o TTL resolve.
	accounts := make(map[string]entities.DailyRollup)
	for _, rollup := range rollups {
		accounts[registryKey(rollup.TenantID, rollup.AccountID)] = rollup
	}

	for registry, rollup := range accounts {
		if _, err := r.redisClient.IncrementCounter(ctx, versionKey(rollup.TenantID, rollup.AccountID)); err != nil {
			r.logger.Warn("Failed to bump rollup cache version", "registry", registry, "error", err)
		}

		if err := r.invalidateRegistry(ctx, registry); err != nil {
			r.logger.Warn("Failed to invalidate rollup cache", "registry", registry, "error", err)
		}
	}

	return nil
}

func (r *CachedRollupRepository) FindRollups(ctx context.Context, tenantID string, accountID string, dateRange domain.DateRange) ([]entities.DailyRollup, error) {
	if r.redisClient == nil {
		return r.rollupRepository.FindRollups(ctx, tenantID, accountID, dateRange)
	}

	// A versão é lida antes do store, nunca depois.
	version, err := r.redisClient.GetCounter(ctx, versionKey(tenantID, accountID))
	if err != nil {
		r.logger.Warn("Rollup cache version unavailable, skipping cache", "error", err)
		return r.rollupRepository.FindRollups(ctx, tenantID, accountID, dateRange)
	}

	cacheKey := generateCacheKey(tenantID, accountID, dateRange, version)

	cached, found, err := r.getFromCache(ctx, cacheKey)
	if found && err == nil {
		r.logger.Debug("Rollup cache HIT", "key", cacheKey)
		return cached, nil
	}

	if err != nil {
		r.logger.Warn("Rollup cache error", "key", cacheKey, "error", err)
	}

	rollups, err := r.rollupRepository.FindRollups(ctx, tenantID, accountID, dateRange)
	if err != nil {
		return nil, err
	}

	go func() {
		ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		r.setInCache(ctxWithTimeout, cacheKey, registryKey(tenantID, accountID), rollups)
	}()

	return rollups, nil
}

func generateCacheKey(tenantID string, accountID string, dateRange domain.DateRange, version int64) string {
	keyData := fmt.Sprintf("rollups:%s:%s:from:%s:to:%s:v%d",
		tenantID,
		accountID,
		calendar.FormatDay(dateRange.From),
		calendar.FormatDay(dateRange.To),
		version,
	)

	hash := md5.Sum([]byte(keyData))
	return fmt.Sprintf("rollups:range:%x", hash)
}

func registryKey(tenantID string, accountID string) string {
	return fmt.Sprintf("registry:rollups:%s:%s", tenantID, accountID)
}

func versionKey(tenantID string, accountID string) string {
	return fmt.Sprintf("version:rollups:%s:%s", tenantID, accountID)
}

func (r *CachedRollupRepository) getFromCache(ctx context.Context, cacheKey string) ([]entities.DailyRollup, bool, error) {
	cachedJSON, found, err := r.redisClient.GetKey(ctx, cacheKey)
	if !found || err != nil {
		return nil, found, err
	}

	var rollups []entities.DailyRollup
	if err := json.Unmarshal([]byte(cachedJSON), &rollups); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached rollups: %w", err)
	}

	return rollups, true, nil
}

func (r *CachedRollupRepository) setInCache(ctx context.Context, cacheKey string, registry string, rollups []entities.DailyRollup) {
	dataJSON, err := json.Marshal(rollups)
	if err != nil {
		r.logger.Warn("Failed to marshal rollups for cache", "key", cacheKey, "error", err)
		return
	}

	if err := r.redisClient.SetWithRegistry(ctx, cacheKey, string(dataJSON), []string{registry}); err != nil {
		r.logger.Warn("Failed to set rollup cache", "key", cacheKey, "error", err)
		return
	}

	r.logger.Debug("Rollup cache SET", "key", cacheKey, "count", len(rollups))
}

func (r *CachedRollupRepository) invalidateRegistry(ctx context.Context, registry string) error {
	members, err := r.redisClient.GetMultipleSetMembers(ctx, []string{registry})
	if err != nil {
		return fmt.Errorf("failed to get registry data: %w", err)
	}

	keysToDelete := append([]string{registry}, members[registry]...)
	return r.redisClient.InvalidateKeys(ctx, keysToDelete)
}
