package httpapi

import (
	"sync/atomic"

	"go.uber.org/zap"

	"talentscout-engine/internal/config"
	"talentscout-engine/internal/events"
	"talentscout-engine/internal/fetchcache"
	"talentscout-engine/internal/scheduler"
	"talentscout-engine/internal/store"
)

type Deps struct {
	Scheduler *scheduler.Scheduler
	Store     *store.DB
	Hub       *events.Hub
	Cache     *fetchcache.Cache
	Log       *zap.Logger

	// CfgVal stores config.Config; handlers must load per request, not
	// keep a snapshot.
	CfgVal      *atomic.Value
	UserCfgPath string
	LoadCfg     func() (config.Config, error)
}
