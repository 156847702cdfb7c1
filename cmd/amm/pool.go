package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cpamm/internal/amm"
	"cpamm/internal/model"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a pool for an asset pair",
		RunE:  runInit,
	}
	cmd.Flags().String("asset-x", "", "first pool asset")
	cmd.Flags().String("asset-y", "", "second pool asset")
	cmd.Flags().Uint16("fee-bps", 30, "fee in basis points (0-10000)")
	cmd.Flags().String("authority", "", "optional pool authority")
	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	rt, err := loadRuntime(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	assetX, err := parseAddress("asset-x", mustString(cmd, "asset-x"))
	if err != nil {
		return err
	}
	assetY, err := parseAddress("asset-y", mustString(cmd, "asset-y"))
	if err != nil {
		return err
	}
	authority, err := parseOptionalAddress("authority", mustString(cmd, "authority"))
	if err != nil {
		return err
	}
	fee, _ := cmd.Flags().GetUint16("fee-bps")

	pool, err := rt.keeper.Initialize(ctx, model.InitializeRequest{
		FeeBps:    fee,
		Authority: authority,
		AssetX:    assetX,
		AssetY:    assetY,
	})
	if err != nil {
		return err
	}
	if err := rt.persist(); err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), pool)
}

func newFundCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fund",
		Short: "Mint asset units to an owner, creating the asset if needed",
		RunE:  runFund,
	}
	cmd.Flags().String("mint", "", "asset address")
	cmd.Flags().String("authority", "", "asset minting authority")
	cmd.Flags().Uint8("decimals", 6, "asset decimals")
	cmd.Flags().String("owner", "", "receiving owner")
	cmd.Flags().Uint64("amount", 0, "amount in base units")
	return cmd
}

func runFund(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	rt, err := loadRuntime(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	mint, err := parseAddress("mint", mustString(cmd, "mint"))
	if err != nil {
		return err
	}
	authority, err := parseAddress("authority", mustString(cmd, "authority"))
	if err != nil {
		return err
	}
	owner, err := parseAddress("owner", mustString(cmd, "owner"))
	if err != nil {
		return err
	}
	decimals, _ := cmd.Flags().GetUint8("decimals")
	amount, _ := cmd.Flags().GetUint64("amount")

	account, err := rt.keeper.Fund(ctx, amm.FundRequest{
		Mint:      mint,
		Authority: authority,
		Decimals:  decimals,
		Owner:     owner,
		Amount:    amount,
	})
	if err != nil {
		return err
	}
	if err := rt.persist(); err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), account)
}

func newDepositCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Deposit both assets into a pool for LP units",
		RunE:  runDeposit,
	}
	addPoolFlags(cmd)
	cmd.Flags().String("depositor", "", "depositing owner")
	cmd.Flags().Uint64("lp", 0, "LP units to mint")
	cmd.Flags().Uint64("max-x", 0, "most of asset x to take")
	cmd.Flags().Uint64("max-y", 0, "most of asset y to take")
	return cmd
}

func runDeposit(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	rt, err := loadRuntime(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	pool, err := resolvePool(ctx, cmd, rt.keeper)
	if err != nil {
		return err
	}
	depositor, err := parseAddress("depositor", mustString(cmd, "depositor"))
	if err != nil {
		return err
	}
	lp, _ := cmd.Flags().GetUint64("lp")
	maxX, _ := cmd.Flags().GetUint64("max-x")
	maxY, _ := cmd.Flags().GetUint64("max-y")

	req := model.DepositRequest{
		Pool:      pool,
		Depositor: depositor,
		LPAmount:  lp,
		MaxX:      maxX,
		MaxY:      maxY,
	}

	var res model.DepositResult
	attempts := 0
	err = withRetry(ctx, rt.cfg.MaxRetries, rt.cfg.RetryBackoff, func(ctx context.Context) error {
		attempts++
		var err error
		res, err = rt.keeper.Deposit(ctx, req)
		return err
	})
	if err != nil {
		rt.logger.Error("deposit failed",
			zap.String("pool", pool.Hex()),
			zap.String("outcome", amm.Outcome(err)),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return err
	}
	if err := rt.persist(); err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a pool with its reserves and price",
		RunE:  runShow,
	}
	addPoolFlags(cmd)
	return cmd
}

func runShow(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	rt, err := loadRuntime(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	pool, err := resolvePool(ctx, cmd, rt.keeper)
	if err != nil {
		return err
	}
	view, err := rt.keeper.View(ctx, pool)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), view)
}

func addPoolFlags(cmd *cobra.Command) {
	cmd.Flags().String("pool", "", "pool address")
	cmd.Flags().String("asset-x", "", "pool asset, used with --asset-y instead of --pool")
	cmd.Flags().String("asset-y", "", "pool asset, used with --asset-x instead of --pool")
}

// resolvePool returns --pool, or looks the pool up by its asset pair.
func resolvePool(ctx context.Context, cmd *cobra.Command, keeper *amm.Keeper) (common.Address, error) {
	if raw := mustString(cmd, "pool"); raw != "" {
		return parseAddress("pool", raw)
	}
	rawX, rawY := mustString(cmd, "asset-x"), mustString(cmd, "asset-y")
	if rawX == "" || rawY == "" {
		return common.Address{}, fmt.Errorf("--pool or both --asset-x and --asset-y are required")
	}
	assetX, err := parseAddress("asset-x", rawX)
	if err != nil {
		return common.Address{}, err
	}
	assetY, err := parseAddress("asset-y", rawY)
	if err != nil {
		return common.Address{}, err
	}
	pool, err := keeper.FindPool(ctx, assetX, assetY)
	if err != nil {
		return common.Address{}, err
	}
	return pool.Address, nil
}

func mustString(cmd *cobra.Command, name string) string {
	value, _ := cmd.Flags().GetString(name)
	return value
}
