package health

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Pinger periodically GETs a URL to keep the hosting platform from idling the
// process. It is decoupled from request handling and stops when its context is
// cancelled.
type Pinger struct {
	url      string
	interval time.Duration
	client   *http.Client
	logger   *zap.Logger
}

func NewPinger(url string, interval time.Duration, logger *zap.Logger) *Pinger {
	return &Pinger{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

// Run blocks, pinging once immediately and then on every tick until ctx is
// cancelled.
func (p *Pinger) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.ping(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ping(ctx)
		}
	}
}

func (p *Pinger) ping(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		p.logger.Warn("health ping request invalid", zap.Error(err))
		return
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("health ping failed", zap.Error(err), zap.String("url", p.url))
		return
	}
	resp.Body.Close()

	p.logger.Debug("health ping sent", zap.String("url", p.url), zap.Int("status", resp.StatusCode))
}
