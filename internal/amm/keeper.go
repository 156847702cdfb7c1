package amm

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"cpamm/internal/ledger"
	"cpamm/internal/metrics"
	"cpamm/internal/model"
	"cpamm/internal/storage"
)

const (
	// LPDecimals is the precision of every pool's LP unit.
	LPDecimals uint8 = 6
	// MaxFeeBps is the largest accepted fee, 100%.
	MaxFeeBps uint16 = 10_000
)

// DefaultProgramID namespaces derived addresses when none is configured.
var DefaultProgramID = common.HexToAddress("0x000000000000000000000000000000000000a33a")

// Keeper runs pool initialization and deposits against a ledger store.
type Keeper struct {
	store     ledger.Store
	programID common.Address
	logger    *zap.Logger
	metrics   *metrics.Metrics
	journal   storage.Journal
	locks     *poolLocks
	verified  *poolCache
	now       func() time.Time
}

// Option configures optional Keeper dependencies.
type Option func(*Keeper)

func WithMetrics(m *metrics.Metrics) Option {
	return func(k *Keeper) { k.metrics = m }
}

func WithJournal(j storage.Journal) Option {
	return func(k *Keeper) { k.journal = j }
}

func WithClock(now func() time.Time) Option {
	return func(k *Keeper) { k.now = now }
}

func NewKeeper(store ledger.Store, programID common.Address, logger *zap.Logger, opts ...Option) (*Keeper, error) {
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if programID == (common.Address{}) {
		return nil, fmt.Errorf("program id is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	k := &Keeper{
		store:     store,
		programID: programID,
		logger:    logger,
		locks:     newPoolLocks(),
		verified:  newPoolCache(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k, nil
}

// ProgramID returns the namespace used for address derivation.
func (k *Keeper) ProgramID() common.Address {
	return k.programID
}

func (k *Keeper) emit(record model.LogRecord, err error) {
	if err != nil {
		k.logger.Warn("encode event failed", zap.Error(err))
		return
	}
	if k.journal == nil {
		return
	}
	if err := k.journal.Append([]model.LogRecord{record}); err != nil {
		k.logger.Warn("journal append failed",
			zap.String("event", record.EventName),
			zap.String("id", record.ID),
			zap.Error(err),
		)
	}
}
