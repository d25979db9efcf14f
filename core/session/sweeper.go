package session

import (
	"fstt-incidents/config"
	"fstt-incidents/core/utils"

	"github.com/robfig/cron/v3"
)

// Sweeper periodically purges expired sessions. Lazy eviction on
// access already keeps validation correct; the sweep bounds memory for
// sessions that are simply abandoned.
type Sweeper struct {
	store  Store
	cfg    *config.AppConfig
	logger *utils.Logger
	cron   *cron.Cron
}

func NewSweeper(store Store, cfg *config.AppConfig, logger *utils.Logger) *Sweeper {
	return &Sweeper{store: store, cfg: cfg, logger: logger}
}

func (s *Sweeper) Start() error {
	if s.cfg == nil || !s.cfg.SessionSweep.Enabled {
		return nil
	}
	c := cron.New()
	_, err := c.AddFunc(s.cfg.SessionSweep.Spec, s.sweep)
	if err != nil {
		return err
	}
	s.cron = c
	c.Start()
	return nil
}

func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Sweeper) sweep() {
	removed := s.store.DeleteExpired(utils.NowUTC(), s.cfg.EffectiveSessionTTL())
	if removed > 0 {
		s.logger.Printf("SESSIONS swept %d expired, %d active", removed, s.store.Len())
	}
}
