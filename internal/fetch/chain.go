package fetch

import (
	"go.uber.org/zap"

	"github.com/Hchen1218/viral-content-breakdown/internal/cache"
	"github.com/Hchen1218/viral-content-breakdown/internal/capability"
	"github.com/Hchen1218/viral-content-breakdown/internal/model"
	"github.com/Hchen1218/viral-content-breakdown/internal/session"
	"github.com/Hchen1218/viral-content-breakdown/internal/util"
	"github.com/Hchen1218/viral-content-breakdown/internal/worker"
)

// ChainDeps bundles the shared infrastructure every adapter chain draws on.
type ChainDeps struct {
	Config   *model.Config
	Caps     capability.Set
	Provider session.Provider
	Cache    *cache.Memory
	Logger   *zap.Logger
}

// ChainFor assembles the adapter priority order for a platform:
//
//	douyin        specialized downloader, then yt-dlp
//	xiaohongshu   specialized downloader, then yt-dlp
//	wechat_mp     article exporter, then direct HTML fallback
//	unknown       yt-dlp, then direct HTML fetch
func ChainFor(platform model.Platform, deps ChainDeps) *Chain {
	cfg := deps.Config
	logger := deps.Logger

	var robots *util.RobotsChecker
	if cfg.Fetch.RespectRobots {
		robots = util.NewRobotsChecker(cfg.HTTP.UserAgent, cfg.HTTP.Timeout)
	}
	var memCache *cache.Memory
	cacheTTL := cfg.Cache.TTL
	if cfg.Cache.Enabled {
		memCache = deps.Cache
	}

	ytdlp := NewYtDlpAdapter(deps.Caps.YtDlpPath, logger)

	var adapters []Adapter
	switch platform {
	case model.PlatformDouyin:
		adapters = []Adapter{NewDouyinAdapter(logger), ytdlp}
	case model.PlatformXiaohongshu:
		adapters = []Adapter{NewXiaohongshuAdapter(logger), ytdlp}
	case model.PlatformWechatMP:
		adapters = []Adapter{
			NewWechatExporterAdapter(logger),
			NewHTMLAdapter("wechat-html-fallback", cfg.HTTP, memCache, cacheTTL, robots, logger),
		}
	default:
		adapters = []Adapter{
			ytdlp,
			NewHTMLAdapter("generic-html", cfg.HTTP, memCache, cacheTTL, robots, logger),
		}
	}

	limiter := worker.NewLimiter(cfg.Fetch.RequestsPerSecond, cfg.Fetch.Burst)
	return NewChain(adapters, deps.Provider, limiter, cfg.Fetch.AdapterTimeout, logger)
}
