// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command detectd is the process wrapper around the detection core: it
// loads DetectorConfig, compiles whatever rules the (external) rule
// loader hands it, and serves /metrics and /healthz while the core is
// driven by an out-of-process packet source. Rule text parsing itself and
// the packet decode/reassembly pipeline feeding Engine.Inspect are both
// out of this module's scope (spec.md §1); this command only wires the
// pieces this module does own.
package main

import (
	"flag"
	"net/http"
	"time"

	"lorasec.io/detect/internal/api"
	"lorasec.io/detect/internal/applayer"
	"lorasec.io/detect/internal/clock"
	"lorasec.io/detect/internal/config"
	"lorasec.io/detect/internal/engine"
	"lorasec.io/detect/internal/flowstate"
	"lorasec.io/detect/internal/logging"
	"lorasec.io/detect/internal/metrics"
	"lorasec.io/detect/internal/ruleaddr"
	"lorasec.io/detect/internal/streamqueue"
)

func main() {
	configPath := flag.String("config", "", "Path to HCL detector config file")
	listen := flag.String("listen", ":8080", "Address for the /metrics and /healthz HTTP surface")
	flag.Parse()

	logger := logging.New(logging.DefaultConfig())

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			logger.Error("detectd: failed to load config", "path", *configPath, "error", err)
			return
		}
		cfg = loaded
	}
	logger.Info("detectd: configuration loaded",
		"stream_pool_size", cfg.StreamPoolSize,
		"stream_pool_growth_step", cfg.StreamPoolGrowthStep,
		"app_layer_max_search_len", cfg.AppLayerMaxSearchLen,
		"signature_capacity_hint", cfg.SignatureCapacityHint,
	)

	// Rule text arrives from an external loader (spec.md §1); an empty
	// rule set still compiles, so the core starts up and serves its
	// status surface even before the first rule set is pushed to it.
	var noVars ruleaddr.Resolver = func(name string) (string, error) {
		return "", nil
	}
	compiled, err := engine.CompilePipeline(nil, noVars)
	if err != nil {
		logger.Error("detectd: failed to compile empty rule set", "error", err)
		return
	}
	for _, skipped := range compiled.Skipped {
		logger.Error("detectd: rule failed to compile, skipping", "rule_id", skipped.ID, "error", skipped.Err)
	}

	reg := metrics.NewRegistry()
	collector := metrics.NewCollector(reg)
	flows := flowstate.NewMapTable(clock.Real{})

	// The stream-message pool (C5) is sized from DetectorConfig and handed
	// off to the (external, out-of-module) reassembler; this process only
	// owns its lifecycle and metrics, per spec.md §1.
	pool := streamqueue.NewPool(cfg.StreamPoolSize)
	pool.SetGrowthStep(cfg.StreamPoolGrowthStep)
	pool.SetExhaustionHook(collector.StreamPoolExhaustions.Inc)

	appLayer := applayer.New()
	applayer.RegisterDefaults(appLayer)
	appLayer.SetMaxSearchLen(cfg.AppLayerMaxSearchLen)
	appLayer.Finalize(streamqueue.NewChunkLens())

	eng := engine.New(compiled.IPOnly, appLayer, compiled.Rules, flows).WithMetrics(collector)

	srv := api.NewServer(reg, eng, logger)
	httpServer := &http.Server{
		Addr:         *listen,
		Handler:      srv.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logger.Info("detectd: listening", "addr", *listen)
	if err := httpServer.ListenAndServe(); err != nil {
		logger.Error("detectd: server exited", "error", err)
	}
}
