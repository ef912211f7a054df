package main

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/nkeiba/racecast/internal/betting"
	"github.com/nkeiba/racecast/internal/calculator"
	"github.com/nkeiba/racecast/internal/cache"
	"github.com/nkeiba/racecast/internal/combiner"
	"github.com/nkeiba/racecast/internal/config"
	"github.com/nkeiba/racecast/internal/pedigree"
	"github.com/nkeiba/racecast/internal/prediction"
	"github.com/nkeiba/racecast/internal/rediscache"
	"github.com/nkeiba/racecast/internal/resilience"
	"github.com/nkeiba/racecast/internal/storage"
)

const factorCacheCapacity = 4096

// predictCacheTTL bounds how long a /predict response can be served
// stale out of Redis before the pipeline is re-run.
const predictCacheTTL = 5 * time.Minute

// pipeline bundles every collaborator shared by serve/backtest/simulate:
// storage guarded against a flaky database, the calculator/combiner
// pair built from the weights config, and the prediction service they
// feed. predictCache is nil unless --redis-addr was given.
type pipeline struct {
	repo         *storage.Repository
	guard        *resilience.Guard
	source       *resilience.GuardedDataSource
	calc         *calculator.Calculator
	combine      *combiner.Combiner
	predictor    *prediction.Service
	resolver     betting.OutcomeResolver
	predictCache *rediscache.Cache
}

// buildPipeline loads both config files (if given), opens the database
// and applies the pedigree/grade overrides before any scoring runs, per
// internal/config's "load once at startup" contract.
func buildPipeline(cmd *cobra.Command) (*pipeline, func(), error) {
	dsn, _ := cmd.Flags().GetString("db-dsn")
	if dsn == "" {
		return nil, nil, fmt.Errorf("racecast: --db-dsn (or RACECAST_DB_DSN) is required")
	}

	weightsPath, _ := cmd.Flags().GetString("weights-config")
	pedigreePath, _ := cmd.Flags().GetString("pedigree-config")

	master := pedigree.Default()
	combine := combiner.New(nil)

	if weightsPath != "" {
		weights, err := config.LoadWeightsConfig(weightsPath)
		if err != nil {
			return nil, nil, err
		}
		combine = weights.NewCombiner()
	}
	if pedigreePath != "" {
		pedigreeCfg, err := config.LoadPedigreeOverrideConfig(pedigreePath)
		if err != nil {
			return nil, nil, err
		}
		master = pedigreeCfg.NewMaster()
		pedigreeCfg.ApplyGradeMultipliers()
	}

	cfg := storage.DefaultConfig()
	cfg.DSN = dsn
	repo, err := storage.Open(cfg)
	if err != nil {
		return nil, nil, err
	}

	guard := resilience.NewGuard("storage", resilience.DefaultConfig())
	source := resilience.NewGuardedDataSource(repo, guard)

	calc := calculator.New(cache.New(factorCacheCapacity), master)
	predictor := prediction.New(source, calc, combine, nil)
	resolver := storage.NewResolver(repo, predictor)

	var predictCache *rediscache.Cache
	redisAddr, _ := cmd.Flags().GetString("redis-addr")
	if redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: redisAddr})
		predictCache = rediscache.New(client, predictCacheTTL)
	}

	cleanup := func() {
		repo.Close()
		if predictCache != nil {
			predictCache.Close()
		}
	}

	return &pipeline{
		repo:         repo,
		guard:        guard,
		source:       source,
		calc:         calc,
		combine:      combine,
		predictor:    predictor,
		resolver:     resolver,
		predictCache: predictCache,
	}, cleanup, nil
}
