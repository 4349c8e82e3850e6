// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/soothill/smart-home-manager/pkg/interfaces"
	"github.com/soothill/smart-home-manager/pkg/logger"
	"github.com/soothill/smart-home-manager/pkg/metrics"
	"github.com/soothill/smart-home-manager/pkg/util"
)

const (
	defaultCacheDir     = "/var/cache/smart-home-manager"
	cacheFilePrefix     = "cache_"
	cacheFileExt        = ".json"
	defaultMaxSize      = 100 * 1024 * 1024 // 100 MB
	defaultMaxAge       = 24 * time.Hour
	replayBatchSize     = 100
	healthCheckInterval = 30 * time.Second
	spoolWarnRatio      = 0.8
	alertTimeout        = 5 * time.Second
)

// LocalCache spools readings to one JSON file each
type LocalCache struct {
	cacheDir    string
	maxSize     int64
	maxAge      time.Duration
	mu          sync.Mutex
	currentSize int64
	count       int
}

// CachedReading is a reading held in the spool
type CachedReading struct {
	Reading   *interfaces.TaggedReading `json:"reading"`
	CachedAt  time.Time                 `json:"cached_at"`
	AttemptID string                    `json:"attempt_id"`
}

// NewLocalCache creates the spool directory and accounts for files left
// by a previous run.
func NewLocalCache(cacheDir string, maxSize int64, maxAge time.Duration) (*LocalCache, error) {
	if cacheDir == "" {
		cacheDir = defaultCacheDir
	}
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	if maxAge <= 0 {
		maxAge = defaultMaxAge
	}

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	cache := &LocalCache{
		cacheDir: cacheDir,
		maxSize:  maxSize,
		maxAge:   maxAge,
	}

	if err := cache.updateCurrentSize(); err != nil {
		logger.Warn().Err(err).Msg("Failed to calculate initial cache size")
	}

	if err := cache.CleanupOld(); err != nil {
		logger.Warn().Err(err).Msg("Failed to cleanup old cache files")
	}

	return cache, nil
}

// Write spools a reading
func (lc *LocalCache) Write(reading *interfaces.TaggedReading) error {
	if reading == nil {
		return fmt.Errorf("reading cannot be nil")
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()

	if lc.currentSize >= lc.maxSize {
		return fmt.Errorf("cache is full (%d >= %d bytes)", lc.currentSize, lc.maxSize)
	}

	cached := &CachedReading{
		Reading:   reading,
		CachedAt:  time.Now(),
		AttemptID: uuid.NewString(),
	}

	filename := lc.generateFilename(cached.AttemptID)
	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}

	if err := util.WriteFileAtomic(filename, data, 0o600); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	lc.currentSize += int64(len(data))
	lc.count++
	metrics.SpooledReadings.Set(float64(lc.count))

	logger.Debug().
		Str("device_id", reading.DeviceID).
		Str("sensor_id", reading.SensorID).
		Str("filename", filepath.Base(filename)).
		Int64("cache_size", lc.currentSize).
		Msg("Written reading to cache")

	return nil
}

// ListCachedReadings returns all spooled readings, oldest first
func (lc *LocalCache) ListCachedReadings() ([]*CachedReading, error) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	files, err := lc.files()
	if err != nil {
		return nil, err
	}

	var readings []*CachedReading
	for _, file := range files {
		cached, _, err := readCacheFile(file)
		if err != nil {
			logger.Warn().Err(err).Str("file", file).Msg("Skipping unreadable cache file")
			continue
		}
		readings = append(readings, cached)
	}

	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].CachedAt.Before(readings[j].CachedAt)
	})

	return readings, nil
}

// DeleteCached removes one spooled reading
func (lc *LocalCache) DeleteCached(attemptID string) error {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	filename := lc.generateFilename(attemptID)

	info, err := os.Stat(filename)
	if err != nil {
		return fmt.Errorf("failed to stat cache file: %w", err)
	}

	if err := os.Remove(filename); err != nil {
		return fmt.Errorf("failed to delete cache file: %w", err)
	}

	lc.forget(info.Size())
	logger.Debug().Str("attempt_id", attemptID).Msg("Deleted cached reading")

	return nil
}

// CleanupOld removes spooled readings older than maxAge
func (lc *LocalCache) CleanupOld() error {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	files, err := lc.files()
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-lc.maxAge)
	deletedCount := 0

	for _, file := range files {
		cached, size, err := readCacheFile(file)
		if err != nil || !cached.CachedAt.Before(cutoff) {
			continue
		}
		if err := os.Remove(file); err != nil {
			logger.Warn().Err(err).Str("file", file).Msg("Failed to delete old cache file")
			continue
		}
		deletedCount++
		lc.forget(size)
	}

	if deletedCount > 0 {
		logger.Info().Int("count", deletedCount).Msg("Cleaned up old cache files")
	}

	return nil
}

// GetCacheSize returns the current cache size in bytes
func (lc *LocalCache) GetCacheSize() int64 {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.currentSize
}

// GetMaxSize returns the maximum cache size
func (lc *LocalCache) GetMaxSize() int64 {
	return lc.maxSize
}

// Len returns the number of spooled readings
func (lc *LocalCache) Len() int {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.count
}

func (lc *LocalCache) forget(size int64) {
	lc.currentSize -= size
	if lc.currentSize < 0 {
		lc.currentSize = 0
	}
	if lc.count > 0 {
		lc.count--
	}
	metrics.SpooledReadings.Set(float64(lc.count))
}

func (lc *LocalCache) files() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(lc.cacheDir, cacheFilePrefix+"*"+cacheFileExt))
	if err != nil {
		return nil, fmt.Errorf("failed to list cache files: %w", err)
	}
	return files, nil
}

func readCacheFile(file string) (*CachedReading, int64, error) {
	data, err := util.ReadFileSafely(file)
	if err != nil {
		return nil, 0, err
	}
	var cached CachedReading
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, 0, err
	}
	if cached.Reading == nil {
		return nil, 0, fmt.Errorf("cache file has no reading")
	}
	return &cached, int64(len(data)), nil
}

// updateCurrentSize recalculates size and count from the directory
func (lc *LocalCache) updateCurrentSize() error {
	files, err := lc.files()
	if err != nil {
		return err
	}

	var totalSize int64
	count := 0
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		totalSize += info.Size()
		count++
	}

	lc.currentSize = totalSize
	lc.count = count
	metrics.SpooledReadings.Set(float64(count))
	return nil
}

func (lc *LocalCache) generateFilename(attemptID string) string {
	return filepath.Join(lc.cacheDir, cacheFilePrefix+attemptID+cacheFileExt)
}

// SpoolNotifier receives mirror outage alerts
type SpoolNotifier interface {
	SendMirrorFailure(ctx context.Context, err error) error
	SendMirrorRecovery(ctx context.Context) error
	SendSpoolWarning(ctx context.Context, size, maxSize int64) error
	IsEnabled() bool
}

// CachingStorage wraps a reading mirror, spooling readings to a LocalCache
// while the mirror rejects writes and replaying them once it is healthy.
type CachingStorage struct {
	mirror        interfaces.ReadingMirror
	cache         *LocalCache
	notifier      SpoolNotifier
	checkInterval time.Duration
	ctx           context.Context
	cancel        context.CancelFunc
	replayWg      sync.WaitGroup

	stateMu   sync.Mutex
	spooling  bool
	warned    bool
	closeOnce sync.Once
}

var _ interfaces.ReadingMirror = (*CachingStorage)(nil)

// NewCachingStorage starts the background health monitor. A zero
// checkInterval uses the default of 30 seconds.
func NewCachingStorage(mirror interfaces.ReadingMirror, cache *LocalCache, notifier SpoolNotifier, checkInterval time.Duration) *CachingStorage {
	if checkInterval <= 0 {
		checkInterval = healthCheckInterval
	}
	ctx, cancel := context.WithCancel(context.Background())

	cs := &CachingStorage{
		mirror:        mirror,
		cache:         cache,
		notifier:      notifier,
		checkInterval: checkInterval,
		ctx:           ctx,
		cancel:        cancel,
	}

	// Readings left over from a previous run are replayed on the first tick.
	if cache.Len() > 0 {
		cs.spooling = true
	}

	cs.replayWg.Add(1)
	go cs.monitorAndReplay()

	return cs
}

// WriteReading writes through to the mirror, spooling the reading when the
// write fails.
func (cs *CachingStorage) WriteReading(ctx context.Context, reading *interfaces.TaggedReading) error {
	if cs.isSpooling() {
		return cs.spool(reading, nil)
	}

	err := cs.mirror.WriteReading(ctx, reading)
	if err == nil {
		return nil
	}

	logger.Warn().Err(err).Str("sensor_id", sensorIDOf(reading)).Msg("InfluxDB write failed, caching locally")
	return cs.spool(reading, err)
}

// WriteBatch writes multiple readings
func (cs *CachingStorage) WriteBatch(ctx context.Context, readings []*interfaces.TaggedReading) error {
	for i, reading := range readings {
		if err := cs.WriteReading(ctx, reading); err != nil {
			return fmt.Errorf("failed to write reading %d/%d (sensor_id=%s): %w", i+1, len(readings), sensorIDOf(reading), err)
		}
	}
	return nil
}

// Flush flushes pending writes
func (cs *CachingStorage) Flush() {
	cs.mirror.Flush()
}

// Close stops the replay loop and closes the mirror
func (cs *CachingStorage) Close() {
	cs.closeOnce.Do(func() {
		logger.Info().Msg("Closing caching storage")
		cs.cancel()
		cs.replayWg.Wait()
		cs.mirror.Close()
	})
}

// Health checks mirror health
func (cs *CachingStorage) Health(ctx context.Context) error {
	return cs.mirror.Health(ctx)
}

// Spooling reports whether writes currently go to the local spool
func (cs *CachingStorage) Spooling() bool {
	return cs.isSpooling()
}

func (cs *CachingStorage) isSpooling() bool {
	cs.stateMu.Lock()
	defer cs.stateMu.Unlock()
	return cs.spooling
}

// spool writes to the local cache. cause is the mirror error that started
// spooling, nil when already spooling.
func (cs *CachingStorage) spool(reading *interfaces.TaggedReading, cause error) error {
	if cause != nil {
		cs.stateMu.Lock()
		first := !cs.spooling
		cs.spooling = true
		cs.stateMu.Unlock()

		if first {
			cs.alert(func(ctx context.Context) error { return cs.notifier.SendMirrorFailure(ctx, cause) })
		}
	}

	if cacheErr := cs.cache.Write(reading); cacheErr != nil {
		if cause != nil {
			return fmt.Errorf("influxdb write failed and cache write failed: influxdb=%w, cache=%w", cause, cacheErr)
		}
		return fmt.Errorf("cache write failed: %w", cacheErr)
	}

	cacheSize := cs.cache.GetCacheSize()
	maxSize := cs.cache.GetMaxSize()
	if float64(cacheSize)/float64(maxSize) > spoolWarnRatio {
		cs.stateMu.Lock()
		warn := !cs.warned
		cs.warned = true
		cs.stateMu.Unlock()
		if warn {
			cs.alert(func(ctx context.Context) error { return cs.notifier.SendSpoolWarning(ctx, cacheSize, maxSize) })
		}
	}

	return nil
}

func (cs *CachingStorage) alert(send func(ctx context.Context) error) {
	if cs.notifier == nil || !cs.notifier.IsEnabled() {
		return
	}
	ctx, cancel := context.WithTimeout(cs.ctx, alertTimeout)
	defer cancel()
	if err := send(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to send spool alert")
	}
}

func (cs *CachingStorage) monitorAndReplay() {
	defer cs.replayWg.Done()

	ticker := time.NewTicker(cs.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cs.ctx.Done():
			return
		case <-ticker.C:
			if !cs.isSpooling() {
				continue
			}
			cs.tryRecover()
		}
	}
}

// tryRecover replays the spool once the mirror is healthy again
func (cs *CachingStorage) tryRecover() {
	healthCtx, healthCancel := context.WithTimeout(cs.ctx, alertTimeout)
	err := cs.mirror.Health(healthCtx)
	healthCancel()
	if err != nil {
		logger.Debug().Err(err).Msg("InfluxDB still unhealthy, keeping cache enabled")
		return
	}

	logger.Info().Msg("InfluxDB is healthy, replaying cached data")
	if err := cs.replayCachedData(); err != nil {
		logger.Error().Err(err).Msg("Failed to replay cached data")
		return
	}

	cs.stateMu.Lock()
	cs.spooling = cs.cache.Len() > 0
	recovered := !cs.spooling
	if recovered {
		cs.warned = false
	}
	cs.stateMu.Unlock()

	if recovered {
		cs.alert(func(ctx context.Context) error { return cs.notifier.SendMirrorRecovery(ctx) })
	}
}

// replayCachedData replays spooled readings oldest first, in batches
func (cs *CachingStorage) replayCachedData() error {
	readings, err := cs.cache.ListCachedReadings()
	if err != nil {
		return fmt.Errorf("failed to list cached readings: %w", err)
	}

	if len(readings) == 0 {
		logger.Info().Msg("No cached readings to replay")
		return nil
	}

	logger.Info().Int("count", len(readings)).Msg("Replaying cached readings")

	successCount := 0
	for start := 0; start < len(readings); start += replayBatchSize {
		end := start + replayBatchSize
		if end > len(readings) {
			end = len(readings)
		}
		batch := readings[start:end]

		tagged := make([]*interfaces.TaggedReading, len(batch))
		for i, cached := range batch {
			tagged[i] = cached.Reading
		}

		if err := cs.mirror.WriteBatch(cs.ctx, tagged); err != nil {
			logger.Warn().Err(err).Int("replayed", successCount).Msg("Replay interrupted")
			return fmt.Errorf("replay batch at %d: %w", start, err)
		}

		for _, cached := range batch {
			if err := cs.cache.DeleteCached(cached.AttemptID); err != nil {
				logger.Warn().Err(err).Str("attempt_id", cached.AttemptID).Msg("Failed to delete replayed reading from cache")
			}
		}
		successCount += len(batch)
	}

	cs.mirror.Flush()

	logger.Info().
		Int("success", successCount).
		Int("total", len(readings)).
		Msg("Finished replaying cached readings")

	return nil
}

func sensorIDOf(reading *interfaces.TaggedReading) string {
	if reading == nil {
		return ""
	}
	return reading.SensorID
}
