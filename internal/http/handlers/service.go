package handlers

import (
	"sync"

	"github.com/redis/go-redis/v9"

	"pdf2image/internal/config"
	"pdf2image/internal/infra/archive"
	"pdf2image/internal/infra/mupdf"
)

// RenderService bundles configuration and dependencies for page rendering.
type RenderService struct {
	Config  *config.Config
	Redis   *redis.Client
	Archive *archive.Store

	poolMu  sync.Mutex
	pool    *mupdf.Pool
	poolErr error
}

// NewRenderService creates a new RenderService instance.
func NewRenderService(cfg config.Config, rdb *redis.Client, store *archive.Store) *RenderService {
	return &RenderService{
		Config:  &cfg, // convert value to pointer
		Redis:   rdb,
		Archive: store,
	}
}

func (svc *RenderService) getRenderPool() (*mupdf.Pool, error) {
	svc.poolMu.Lock()
	defer svc.poolMu.Unlock()

	if svc.Config.Render.PoolSize <= 0 {
		return nil, nil
	}
	if svc.pool != nil {
		return svc.pool, nil
	}
	pool, err := mupdf.NewPool(*svc.Config)
	if err != nil {
		svc.poolErr = err
		return nil, err
	}
	svc.pool = pool
	return svc.pool, nil
}
