package amm

import (
	"fmt"

	"github.com/holiman/uint256"

	"cpamm/internal/model"
)

// Plan is the set of amounts a deposit will move.
type Plan struct {
	X         uint64
	Y         uint64
	LP        uint64
	Bootstrap bool
}

// RequiredDeposit returns ceil(lp * reserve / supply), the amount of one asset
// that lp new units must bring so existing holders are not diluted.
func RequiredDeposit(lp, reserve, supply uint64) (uint64, error) {
	if supply == 0 {
		return 0, fmt.Errorf("%w: zero supply", ErrInvalidPoolState)
	}
	num := new(uint256.Int).Mul(uint256.NewInt(lp), uint256.NewInt(reserve))
	den := uint256.NewInt(supply)

	q := new(uint256.Int).Div(num, den)
	if !new(uint256.Int).Mod(num, den).IsZero() {
		q.AddUint64(q, 1)
	}
	if !q.IsUint64() {
		return 0, fmt.Errorf("%w: required amount exceeds 64 bits", ErrOverflow)
	}
	return q.Uint64(), nil
}

// PlanDeposit chooses the deposit regime and amounts for a pool state.
func PlanDeposit(state model.PoolState, lp, maxX, maxY uint64) (Plan, error) {
	if lp == 0 {
		return Plan{}, fmt.Errorf("%w: lp amount", ErrZeroAmount)
	}
	if err := checkState(state); err != nil {
		return Plan{}, err
	}

	if state.Empty() {
		if maxX == 0 || maxY == 0 {
			return Plan{}, fmt.Errorf("%w: first deposit needs both assets", ErrZeroAmount)
		}
		return Plan{X: maxX, Y: maxY, LP: lp, Bootstrap: true}, nil
	}

	x, err := RequiredDeposit(lp, state.ReserveX, state.LPSupply)
	if err != nil {
		return Plan{}, err
	}
	y, err := RequiredDeposit(lp, state.ReserveY, state.LPSupply)
	if err != nil {
		return Plan{}, err
	}
	if x > maxX || y > maxY {
		return Plan{}, fmt.Errorf("%w: need x=%d y=%d, caps x=%d y=%d", ErrRatioViolation, x, y, maxX, maxY)
	}
	return Plan{X: x, Y: y, LP: lp}, nil
}

// Quote previews the amounts lp units would cost against state. An empty pool
// yields a bootstrap plan with zero amounts: any non-zero pair is accepted.
func Quote(state model.PoolState, lp uint64) (Plan, error) {
	if lp == 0 {
		return Plan{}, fmt.Errorf("%w: lp amount", ErrZeroAmount)
	}
	if state.Empty() {
		if err := checkState(state); err != nil {
			return Plan{}, err
		}
		return Plan{LP: lp, Bootstrap: true}, nil
	}
	const unlimited = ^uint64(0)
	return PlanDeposit(state, lp, unlimited, unlimited)
}

// Stage returns the pool state after the plan is applied.
func (p Plan) Stage(state model.PoolState) (model.PoolState, error) {
	var (
		next model.PoolState
		err  error
	)
	if next.ReserveX, err = addChecked(state.ReserveX, p.X); err != nil {
		return model.PoolState{}, fmt.Errorf("reserve x: %w", err)
	}
	if next.ReserveY, err = addChecked(state.ReserveY, p.Y); err != nil {
		return model.PoolState{}, fmt.Errorf("reserve y: %w", err)
	}
	if next.LPSupply, err = addChecked(state.LPSupply, p.LP); err != nil {
		return model.PoolState{}, fmt.Errorf("lp supply: %w", err)
	}
	return next, nil
}

// checkNoDilution rejects a staged state whose per-unit reserves fell below
// the current ones.
func checkNoDilution(before, after model.PoolState) error {
	if before.Empty() {
		return nil
	}
	if err := checkState(after); err != nil {
		return err
	}
	if lessRatio(after.ReserveX, after.LPSupply, before.ReserveX, before.LPSupply) ||
		lessRatio(after.ReserveY, after.LPSupply, before.ReserveY, before.LPSupply) {
		return fmt.Errorf("%w: staged deposit dilutes holders", ErrRatioViolation)
	}
	return nil
}

// checkState enforces that supply is zero exactly when both reserves are.
func checkState(state model.PoolState) error {
	if state.LPSupply == 0 && (state.ReserveX != 0 || state.ReserveY != 0) {
		return fmt.Errorf("%w: reserves %d/%d without supply", ErrInvalidPoolState, state.ReserveX, state.ReserveY)
	}
	if state.LPSupply != 0 && state.ReserveX == 0 && state.ReserveY == 0 {
		return fmt.Errorf("%w: supply %d without reserves", ErrInvalidPoolState, state.LPSupply)
	}
	return nil
}

// lessRatio reports a/b < c/d.
func lessRatio(a, b, c, d uint64) bool {
	left := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(d))
	right := new(uint256.Int).Mul(uint256.NewInt(c), uint256.NewInt(b))
	return left.Lt(right)
}

func addChecked(a, b uint64) (uint64, error) {
	sum := new(uint256.Int).Add(uint256.NewInt(a), uint256.NewInt(b))
	if !sum.IsUint64() {
		return 0, ErrOverflow
	}
	return sum.Uint64(), nil
}
