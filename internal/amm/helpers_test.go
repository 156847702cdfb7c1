package amm

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"cpamm/internal/ledger"
	"cpamm/internal/metrics"
	"cpamm/internal/model"
)

var (
	testProgram = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	assetX      = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	assetY      = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	assetZ      = common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")
	faucet      = common.HexToAddress("0x000000000000000000000000000000000000fa11")
	authority   = common.HexToAddress("0x000000000000000000000000000000000000a077")
	alice       = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob         = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

// fataler is the part of *testing.T and *rapid.T the fixtures need.
type fataler interface {
	Helper()
	Fatalf(format string, args ...interface{})
}

type memoryJournal struct {
	mu      sync.Mutex
	records []model.LogRecord
	err     error
}

func (j *memoryJournal) Append(records []model.LogRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.records = append(j.records, records...)
	return nil
}

func (j *memoryJournal) names() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, 0, len(j.records))
	for _, r := range j.records {
		out = append(out, r.EventName)
	}
	return out
}

type fixture struct {
	keeper  *Keeper
	store   *ledger.MemoryStore
	journal *memoryJournal
	metrics *metrics.Metrics
}

func newFixture(t fataler, opts ...Option) *fixture {
	t.Helper()
	store := ledger.NewMemoryStore()
	journal := &memoryJournal{}
	m := metrics.New(nil)
	opts = append([]Option{
		WithMetrics(m),
		WithJournal(journal),
		WithClock(func() time.Time { return time.Unix(1700000000, 0) }),
	}, opts...)

	keeper, err := NewKeeper(store, testProgram, zap.NewNop(), opts...)
	if err != nil {
		t.Fatalf("keeper: %v", err)
	}
	return &fixture{keeper: keeper, store: store, journal: journal, metrics: m}
}

func (f *fixture) fund(t fataler, owner, mint common.Address, amount uint64) {
	t.Helper()
	_, err := f.keeper.Fund(context.Background(), FundRequest{
		Mint:      mint,
		Authority: faucet,
		Decimals:  decimalsFor(mint),
		Owner:     owner,
		Amount:    amount,
	})
	if err != nil {
		t.Fatalf("fund %s: %v", mint.Hex(), err)
	}
}

// decimalsFor is the precision the fixtures give each test asset.
func decimalsFor(mint common.Address) uint8 {
	if mint == assetY {
		return 9
	}
	return 6
}

func (f *fixture) initPool(t fataler, fee uint16) model.PoolConfig {
	t.Helper()
	f.fund(t, faucet, assetX, 0)
	f.fund(t, faucet, assetY, 0)
	pool, err := f.keeper.Initialize(context.Background(), model.InitializeRequest{
		FeeBps:    fee,
		Authority: authority,
		AssetX:    assetX,
		AssetY:    assetY,
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return pool
}

func (f *fixture) deposit(pool common.Address, depositor common.Address, lp, maxX, maxY uint64) (model.DepositResult, error) {
	return f.keeper.Deposit(context.Background(), model.DepositRequest{
		Pool:      pool,
		Depositor: depositor,
		LPAmount:  lp,
		MaxX:      maxX,
		MaxY:      maxY,
	})
}

func (f *fixture) state(t fataler, pool common.Address) model.PoolState {
	t.Helper()
	state, err := f.keeper.State(context.Background(), pool)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	return state
}

func (f *fixture) balance(t fataler, owner, mint common.Address) uint64 {
	t.Helper()
	amount, err := f.keeper.Balance(context.Background(), owner, mint)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return amount
}

// assertUnchanged fails if the committed ledger differs from before.
func (f *fixture) assertUnchanged(t fataler, before ledger.Snapshot) {
	t.Helper()
	if after := f.store.Snapshot(); !reflect.DeepEqual(before, after) {
		t.Fatalf("ledger changed after rejection:\nbefore %+v\nafter  %+v", before, after)
	}
}

func expectErr(t fataler, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}
