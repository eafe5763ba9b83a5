package duckdb

import (
	"context"
	"fmt"
	"log"
	"time"
)

// PruneConfig selects which stored outcomes an OutcomePruner removes.
type PruneConfig struct {
	MaxAge      time.Duration // outcomes that started earlier are deleted; 0 keeps them
	KeepPerCard int           // newest outcomes kept per card; 0 keeps all
	Every       time.Duration // sweep period, defaults to one hour
}

// Pruned counts the outcomes one sweep removed.
type Pruned struct {
	Expired int64 // older than MaxAge
	Trimmed int64 // beyond KeepPerCard
}

// OutcomePruner bounds the outcome history by age and by per-card depth.
type OutcomePruner struct {
	store *Store
	conf  PruneConfig
}

// NewOutcomePruner creates a pruner. It returns nil when neither bound is
// set, so callers can skip running it.
func NewOutcomePruner(store *Store, conf PruneConfig) *OutcomePruner {
	if conf.MaxAge <= 0 && conf.KeepPerCard <= 0 {
		return nil
	}
	if conf.Every <= 0 {
		conf.Every = time.Hour
	}
	return &OutcomePruner{store: store, conf: conf}
}

// Sweep applies both bounds once, age first so the per-card trim only
// counts outcomes that survived expiry.
func (p *OutcomePruner) Sweep(now time.Time) (Pruned, error) {
	var res Pruned
	if p.conf.MaxAge > 0 {
		n, err := p.store.DeleteBefore(now.Add(-p.conf.MaxAge))
		if err != nil {
			return res, fmt.Errorf("expire outcomes: %w", err)
		}
		res.Expired = n
	}
	if p.conf.KeepPerCard > 0 {
		n, err := p.store.TrimPerCard(p.conf.KeepPerCard)
		if err != nil {
			return res, fmt.Errorf("trim outcomes: %w", err)
		}
		res.Trimmed = n
	}
	return res, nil
}

// Run sweeps immediately to catch up after downtime, then once per period
// until ctx is done. A failed sweep is logged and retried next period.
func (p *OutcomePruner) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.conf.Every)
	defer ticker.Stop()

	for {
		p.sweep()
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (p *OutcomePruner) sweep() {
	res, err := p.Sweep(time.Now())
	if err != nil {
		log.Printf("duckdb: outcome pruning: %v", err)
		return
	}
	if res.Expired > 0 || res.Trimmed > 0 {
		log.Printf("duckdb: pruned outcomes: %d expired, %d over the per-card limit", res.Expired, res.Trimmed)
	}
}
