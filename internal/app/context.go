package app

import (
	"log/slog"

	"github.com/oggyb/vivahvows/internal/cache"
	"github.com/oggyb/vivahvows/internal/config"
	"github.com/oggyb/vivahvows/internal/ws"
	"gorm.io/gorm"
)

// AppContext holds shared dependencies (DB, Redis, Logger, Hub, etc.)
type AppContext struct {
	Cfg        *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	Hub        *ws.Hub
}

// New creates a new AppContext
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger, hub *ws.Hub) *AppContext {
	return &AppContext{
		Cfg:        cfg,
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Hub:        hub,
	}
}
