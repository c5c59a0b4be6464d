// Command microengine boots a MicroEngine instance from configuration and
// exposes its prometheus metrics, mirroring the teacher's cmd/server entry
// point shape without any of the dropped HTTP/transport surface.
package main

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fxrisk/microengine/accounts"
	"github.com/fxrisk/microengine/bidask"
	"github.com/fxrisk/microengine/config"
	"github.com/fxrisk/microengine/engine"
	"github.com/fxrisk/microengine/positions"
	"github.com/fxrisk/microengine/settings"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[microengine] config error: %v", err)
	}

	defaultGroup := settings.TradingGroupSettings{
		ID:          "default",
		HedgeCoef:   &cfg.Defaults.HedgeCoef,
		Instruments: map[string]settings.InstrumentSettings{},
		Collaterals: map[string]settings.CollateralSettings{},
	}

	e, crossErrs := engine.Initialize(engine.Snapshot{
		Accounts:    []*accounts.Account{},
		Positions:   []*positions.Position{},
		Groups:      []settings.TradingGroupSettings{defaultGroup},
		Collaterals: map[string]struct{}{},
		Instruments: []bidask.Instrument{},
		WorkerCount: cfg.CrossRate.ResolveWorkerCount,
	})
	for _, cerr := range crossErrs {
		log.Printf("[microengine] cross resolution failed: %v", cerr)
	}
	_ = e

	if !cfg.Metrics.Enabled {
		log.Printf("[microengine] metrics disabled, idling")
		select {}
	}

	http.Handle("/metrics", promhttp.Handler())
	log.Printf("[microengine] serving metrics on %s", cfg.Metrics.Addr)
	log.Fatal(http.ListenAndServe(cfg.Metrics.Addr, nil))
}
