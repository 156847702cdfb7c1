package amm

import (
	"errors"
	"math"
	"testing"

	"cpamm/internal/model"
)

func TestRequiredDeposit(t *testing.T) {
	tests := []struct {
		name    string
		lp      uint64
		reserve uint64
		supply  uint64
		want    uint64
		wantErr error
	}{
		{name: "exact", lp: 500_000, reserve: 100_000_000, supply: 1_000_000, want: 50_000_000},
		{name: "rounds up", lp: 1, reserve: 10, supply: 3, want: 4},
		{name: "smallest unit", lp: 1, reserve: 1, supply: 1_000_000, want: 1},
		{name: "zero reserve", lp: 7, reserve: 0, supply: 3, want: 0},
		{name: "wide intermediate", lp: math.MaxUint64, reserve: math.MaxUint64, supply: math.MaxUint64, want: math.MaxUint64},
		{name: "overflow", lp: math.MaxUint64, reserve: 2, supply: 1, wantErr: ErrOverflow},
		{name: "zero supply", lp: 1, reserve: 1, supply: 0, wantErr: ErrInvalidPoolState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RequiredDeposit(tt.lp, tt.reserve, tt.supply)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("required mismatch: %d != %d", got, tt.want)
			}
		})
	}
}

func TestPlanDeposit(t *testing.T) {
	seeded := model.PoolState{ReserveX: 100_000_000, ReserveY: 200_000_000, LPSupply: 1_000_000}

	tests := []struct {
		name    string
		state   model.PoolState
		lp      uint64
		maxX    uint64
		maxY    uint64
		want    Plan
		wantErr error
	}{
		{
			name:  "bootstrap takes caps",
			state: model.PoolState{},
			lp:    1_000_000, maxX: 100_000_000, maxY: 200_000_000,
			want: Plan{X: 100_000_000, Y: 200_000_000, LP: 1_000_000, Bootstrap: true},
		},
		{
			name:  "proportional within caps",
			state: seeded,
			lp:    500_000, maxX: 60_000_000, maxY: 100_000_000,
			want: Plan{X: 50_000_000, Y: 100_000_000, LP: 500_000},
		},
		{name: "x cap too low", state: seeded, lp: 500_000, maxX: 49_999_999, maxY: math.MaxUint64, wantErr: ErrRatioViolation},
		{name: "y cap too low", state: seeded, lp: 500_000, maxX: math.MaxUint64, maxY: 99_999_999, wantErr: ErrRatioViolation},
		{name: "zero lp", state: seeded, lp: 0, maxX: 1, maxY: 1, wantErr: ErrZeroAmount},
		{name: "bootstrap without y", state: model.PoolState{}, lp: 1, maxX: 1, maxY: 0, wantErr: ErrZeroAmount},
		{name: "reserves without supply", state: model.PoolState{ReserveX: 1}, lp: 1, maxX: 1, maxY: 1, wantErr: ErrInvalidPoolState},
		{name: "supply without reserves", state: model.PoolState{LPSupply: 1}, lp: 1, maxX: 1, maxY: 1, wantErr: ErrInvalidPoolState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PlanDeposit(tt.state, tt.lp, tt.maxX, tt.maxY)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("plan mismatch: %+v != %+v", got, tt.want)
			}
		})
	}
}

func TestPlanStageOverflow(t *testing.T) {
	state := model.PoolState{ReserveX: math.MaxUint64, ReserveY: 1, LPSupply: 1}
	if _, err := (Plan{X: 1, Y: 1, LP: 1}).Stage(state); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}

	next, err := (Plan{X: 5, Y: 10, LP: 1}).Stage(model.PoolState{ReserveX: 5, ReserveY: 10, LPSupply: 1})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if next != (model.PoolState{ReserveX: 10, ReserveY: 20, LPSupply: 2}) {
		t.Fatalf("staged state mismatch: %+v", next)
	}
}

func TestCheckNoDilution(t *testing.T) {
	before := model.PoolState{ReserveX: 10, ReserveY: 20, LPSupply: 3}
	if err := checkNoDilution(before, model.PoolState{ReserveX: 14, ReserveY: 27, LPSupply: 4}); err != nil {
		t.Fatalf("ceiling deposit flagged: %v", err)
	}
	if err := checkNoDilution(before, model.PoolState{ReserveX: 13, ReserveY: 27, LPSupply: 4}); !errors.Is(err, ErrRatioViolation) {
		t.Fatalf("expected dilution rejection, got %v", err)
	}
}

func TestQuote(t *testing.T) {
	plan, err := Quote(model.PoolState{}, 10)
	if err != nil {
		t.Fatalf("quote empty: %v", err)
	}
	if !plan.Bootstrap || plan.X != 0 || plan.Y != 0 {
		t.Fatalf("empty quote mismatch: %+v", plan)
	}

	for _, state := range []model.PoolState{{}, {ReserveX: 10, ReserveY: 20, LPSupply: 3}} {
		if _, err := Quote(state, 0); !errors.Is(err, ErrZeroAmount) {
			t.Fatalf("quote of zero lp on %+v: expected zero amount, got %v", state, err)
		}
	}

	plan, err = Quote(model.PoolState{ReserveX: 10, ReserveY: 20, LPSupply: 3}, 1)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if plan.X != 4 || plan.Y != 7 {
		t.Fatalf("quote mismatch: %+v", plan)
	}
}
