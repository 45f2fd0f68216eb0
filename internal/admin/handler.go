// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/mediahub/internal/content"
	"github.com/carterperez-dev/mediahub/internal/core"
	"github.com/carterperez-dev/mediahub/internal/media"
)

type ContentCounter interface {
	CountByStatus(ctx context.Context) (map[content.Status]int, error)
}

type MediaCounter interface {
	CountByType(ctx context.Context) (map[media.Type]int, error)
}

// HandlerConfig lists the sources the stats report reads. Every source is
// optional; a nil func or counter is left out of the response.
type HandlerConfig struct {
	DBStats    func() sql.DBStats
	DBPing     func(ctx context.Context) error
	RedisStats func() *redis.PoolStats
	RedisPing  func(ctx context.Context) error
	Content    ContentCounter
	Media      MediaCounter
}

type Handler struct {
	src HandlerConfig
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{src: cfg}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(authenticator, adminOnly)

		r.Get("/stats", h.GetSystemStats)
		r.Get("/stats/catalogue", h.GetCatalogueStats)
	})
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	catalogue, err := h.catalogue(ctx)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	resp := SystemStatsResponse{
		Database: DatabaseStatus{
			Healthy: h.src.DBPing == nil || h.src.DBPing(ctx) == nil,
			Stats:   h.getDBStats(),
		},
		Runtime:   readRuntimeStats(),
		Catalogue: catalogue,
	}
	if h.src.RedisPing != nil {
		resp.Redis = &RedisStatus{
			Healthy: h.src.RedisPing(ctx) == nil,
			Stats:   h.getRedisStats(),
		}
	}

	core.OK(w, resp)
}

func (h *Handler) GetCatalogueStats(w http.ResponseWriter, r *http.Request) {
	catalogue, err := h.catalogue(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	core.OK(w, catalogue)
}

func (h *Handler) catalogue(ctx context.Context) (CatalogueStats, error) {
	var stats CatalogueStats

	if h.src.Content != nil {
		counts, err := h.src.Content.CountByStatus(ctx)
		if err != nil {
			return stats, fmt.Errorf("count content: %w", err)
		}
		stats.ContentByStatus = counts
	}

	if h.src.Media != nil {
		counts, err := h.src.Media.CountByType(ctx)
		if err != nil {
			return stats, fmt.Errorf("count media: %w", err)
		}
		stats.MediaByType = counts
	}

	return stats, nil
}

func readRuntimeStats() RuntimeStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     ms.Alloc,
		MemSys:       ms.Sys,
		NumGC:        ms.NumGC,
	}
}

func (h *Handler) getDBStats() *DBPoolStats {
	if h.src.DBStats == nil {
		return nil
	}

	stats := h.src.DBStats()
	return &DBPoolStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration.String(),
		MaxIdleClosed:      stats.MaxIdleClosed,
		MaxIdleTimeClosed:  stats.MaxIdleTimeClosed,
		MaxLifetimeClosed:  stats.MaxLifetimeClosed,
	}
}

func (h *Handler) getRedisStats() *RedisPoolStats {
	if h.src.RedisStats == nil {
		return nil
	}

	stats := h.src.RedisStats()
	if stats == nil {
		return nil
	}
	return &RedisPoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
		StaleConns: stats.StaleConns,
	}
}

type SystemStatsResponse struct {
	Database  DatabaseStatus `json:"database"`
	Redis     *RedisStatus   `json:"redis,omitempty"`
	Runtime   RuntimeStats   `json:"runtime"`
	Catalogue CatalogueStats `json:"catalogue"`
}

type CatalogueStats struct {
	ContentByStatus map[content.Status]int `json:"content_by_status,omitempty"`
	MediaByType     map[media.Type]int     `json:"media_by_type,omitempty"`
}

type DatabaseStatus struct {
	Healthy bool         `json:"healthy"`
	Stats   *DBPoolStats `json:"stats,omitempty"`
}

type RedisStatus struct {
	Healthy bool            `json:"healthy"`
	Stats   *RedisPoolStats `json:"stats,omitempty"`
}

type DBPoolStats struct {
	MaxOpenConnections int    `json:"max_open_connections"`
	OpenConnections    int    `json:"open_connections"`
	InUse              int    `json:"in_use"`
	Idle               int    `json:"idle"`
	WaitCount          int64  `json:"wait_count"`
	WaitDuration       string `json:"wait_duration"`
	MaxIdleClosed      int64  `json:"max_idle_closed"`
	MaxIdleTimeClosed  int64  `json:"max_idle_time_closed"`
	MaxLifetimeClosed  int64  `json:"max_lifetime_closed"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
	StaleConns uint32 `json:"stale_conns"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	MemSys       uint64 `json:"mem_sys_bytes"`
	NumGC        uint32 `json:"num_gc"`
}
