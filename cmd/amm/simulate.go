package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cpamm/internal/amm"
	"cpamm/internal/config"
	"cpamm/internal/model"
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run concurrent random deposits against existing pools",
		RunE:  runSimulate,
	}
	cmd.Flags().StringSlice("pool", nil, "pool addresses (comma-separated)")
	cmd.Flags().Int("workers", 4, "concurrent depositors")
	cmd.Flags().Int("deposits", 100, "total deposits to attempt")
	cmd.Flags().Uint64("max-lp", 1_000_000, "largest LP amount requested per deposit")
	cmd.Flags().Uint64("slippage", 100, "cap headroom over the quote in basis points")
	cmd.Flags().Uint64("fund-amount", 1_000_000_000_000, "units of each asset given to every depositor")
	cmd.Flags().Bool("hold-open", false, "keep serving metrics after the run until interrupted")
	return cmd
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSimulate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	rt, err := openRuntime(ctx, cfg.Config, logger)
	if err != nil {
		_ = logger.Sync()
		return err
	}
	defer rt.Close()

	pools, err := parseAddresses("pool", cfg.Pools)
	if err != nil {
		return err
	}

	var server *http.Server
	if cfg.MetricsAddr != "" {
		server = &http.Server{Addr: cfg.MetricsAddr, Handler: rt.metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
		logger.Info("serving metrics", zap.String("addr", cfg.MetricsAddr))
	}

	sim := &simulator{
		keeper:     rt.keeper,
		logger:     logger,
		pools:      pools,
		maxLP:      cfg.MaxLP,
		slippage:   cfg.Slippage,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.RetryBackoff,
		outcomes:   make(map[string]int),
		depositors: make([]common.Address, cfg.Workers),
		fundAmount: cfg.FundAmount,
		seed:       time.Now().UnixNano(),
	}
	for i := range sim.depositors {
		sim.depositors[i] = common.BigToAddress(big.NewInt(int64(0x5100 + i)))
	}

	start := time.Now()
	if err := sim.fund(ctx); err != nil {
		return err
	}
	if err := sim.run(ctx, cfg.Deposits); err != nil {
		return err
	}
	if err := rt.persist(); err != nil {
		return err
	}

	logger.Info("simulation complete",
		zap.Int("deposits", cfg.Deposits),
		zap.Int("workers", cfg.Workers),
		zap.Any("outcomes", sim.summary()),
		zap.Duration("elapsed", time.Since(start)),
	)

	views := make([]amm.PoolView, 0, len(pools))
	for _, pool := range pools {
		view, err := rt.keeper.View(ctx, pool)
		if err != nil {
			return err
		}
		views = append(views, view)
	}
	if err := printJSON(cmd.OutOrStdout(), views); err != nil {
		return err
	}

	if cfg.HoldOpen && server != nil {
		<-ctx.Done()
	}
	return nil
}

type simulator struct {
	keeper     *amm.Keeper
	logger     *zap.Logger
	pools      []common.Address
	depositors []common.Address
	maxLP      uint64
	slippage   uint64
	maxRetries int
	backoff    time.Duration
	fundAmount uint64
	seed       int64

	mu       sync.Mutex
	outcomes map[string]int
}

// fund gives every depositor fundAmount of both assets of every pool.
func (s *simulator) fund(ctx context.Context) error {
	for _, addr := range s.pools {
		pool, err := s.keeper.Pool(ctx, addr)
		if err != nil {
			return err
		}
		for _, asset := range []common.Address{pool.AssetX, pool.AssetY} {
			mint, err := s.keeper.Mint(ctx, asset)
			if err != nil {
				return fmt.Errorf("load asset %s: %w", asset.Hex(), err)
			}
			for _, depositor := range s.depositors {
				_, err := s.keeper.Fund(ctx, amm.FundRequest{
					Mint:      asset,
					Authority: mint.Authority,
					Decimals:  mint.Decimals,
					Owner:     depositor,
					Amount:    s.fundAmount,
				})
				if err != nil {
					return fmt.Errorf("fund %s: %w", depositor.Hex(), err)
				}
			}
		}
	}
	return nil
}

// run spreads deposits over one goroutine per depositor. Rejections are
// tallied; only unclassified errors stop the run.
func (s *simulator) run(ctx context.Context, deposits int) error {
	jobs := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for i := 0; i < deposits; i++ {
			select {
			case jobs <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for i, depositor := range s.depositors {
		rng := rand.New(rand.NewSource(s.seed + int64(i)))
		depositor := depositor
		g.Go(func() error {
			for range jobs {
				pool := s.pools[rng.Intn(len(s.pools))]
				lp := 1 + uint64(rng.Int63n(int64(min(s.maxLP, math.MaxInt64))))
				outcome, err := s.deposit(gctx, pool, depositor, lp)
				s.record(outcome)
				if outcome == "error" || outcome == "cancelled" {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *simulator) deposit(ctx context.Context, pool, depositor common.Address, lp uint64) (string, error) {
	err := withRetry(ctx, s.maxRetries, s.backoff, func(ctx context.Context) error {
		state, err := s.keeper.State(ctx, pool)
		if err != nil {
			return err
		}
		maxX, maxY := lp, lp
		if !state.Empty() {
			quote, err := amm.Quote(state, lp)
			if err != nil {
				return err
			}
			maxX, maxY = withHeadroom(quote.X, s.slippage), withHeadroom(quote.Y, s.slippage)
		}
		_, err = s.keeper.Deposit(ctx, model.DepositRequest{
			Pool:      pool,
			Depositor: depositor,
			LPAmount:  lp,
			MaxX:      maxX,
			MaxY:      maxY,
		})
		return err
	})
	return amm.Outcome(err), err
}

func (s *simulator) record(outcome string) {
	s.mu.Lock()
	s.outcomes[outcome]++
	s.mu.Unlock()
}

func (s *simulator) summary() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.outcomes))
	for k, v := range s.outcomes {
		out[k] = v
	}
	return out
}

// withHeadroom raises amount by bps basis points, saturating at the uint64 max.
func withHeadroom(amount, bps uint64) uint64 {
	v := new(uint256.Int).SetUint64(amount)
	v.Mul(v, uint256.NewInt(10_000+bps))
	v.Div(v, uint256.NewInt(10_000))
	if !v.IsUint64() {
		return math.MaxUint64
	}
	return v.Uint64()
}
