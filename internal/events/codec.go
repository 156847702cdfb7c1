package events

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"

	"cpamm/internal/model"
)

// EncodePoolInitialized builds the journal record for a created pool.
func EncodePoolInitialized(pool model.PoolConfig, at time.Time) (model.LogRecord, error) {
	poolABI, err := PoolABI()
	if err != nil {
		return model.LogRecord{}, err
	}
	event := poolABI.Events[PoolInitialized]
	data, err := event.Inputs.NonIndexed().Pack(pool.Authority, pool.FeeBps, pool.LPMint)
	if err != nil {
		return model.LogRecord{}, fmt.Errorf("pack %s: %w", event.Name, err)
	}
	return buildRecord(uuid.NewString(), pool.Address, event, data, at,
		pool.Address, pool.AssetX, pool.AssetY), nil
}

// EncodeDeposit builds the journal record for a committed deposit.
func EncodeDeposit(res model.DepositResult, at time.Time) (model.LogRecord, error) {
	poolABI, err := PoolABI()
	if err != nil {
		return model.LogRecord{}, err
	}
	event := poolABI.Events[Deposit]
	data, err := event.Inputs.NonIndexed().Pack(
		res.XTaken,
		res.YTaken,
		res.LPMinted,
		res.ReserveX,
		res.ReserveY,
		res.LPSupply,
	)
	if err != nil {
		return model.LogRecord{}, fmt.Errorf("pack %s: %w", event.Name, err)
	}
	return buildRecord(res.ID.String(), res.Pool, event, data, at, res.Pool, res.Depositor), nil
}

func buildRecord(id string, address common.Address, event abi.Event, data []byte, at time.Time, indexed ...common.Address) model.LogRecord {
	topics := make([]string, 0, len(indexed)+1)
	topics = append(topics, event.ID.Hex())
	for _, addr := range indexed {
		topics = append(topics, common.BytesToHash(addr.Bytes()).Hex())
	}
	return model.LogRecord{
		ID:         id,
		Address:    address.Hex(),
		EventName:  event.Name,
		Topics:     topics,
		Data:       hexutil.Encode(data),
		Timestamp:  uint64(at.Unix()),
		RecordedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// Decoder turns journal records back into typed events.
type Decoder struct {
	poolABI     abi.ABI
	topicToName map[string]string
}

func NewDecoder() (*Decoder, error) {
	poolABI, err := PoolABI()
	if err != nil {
		return nil, err
	}
	return &Decoder{
		poolABI: poolABI,
		topicToName: map[string]string{
			strings.ToLower(poolABI.Events[PoolInitialized].ID.Hex()): PoolInitialized,
			strings.ToLower(poolABI.Events[Deposit].ID.Hex()):         Deposit,
		},
	}, nil
}

// CanDecode checks if the topic0 is supported.
func (d *Decoder) CanDecode(topic0 string) bool {
	_, ok := d.topicToName[strings.ToLower(topic0)]
	return ok
}

// Decode converts a LogRecord into a TypedEvent.
func (d *Decoder) Decode(log model.LogRecord) (*model.TypedEvent, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	name, ok := d.topicToName[strings.ToLower(log.Topics[0])]
	if !ok {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}

	var decoded interface{}
	var err error
	switch name {
	case PoolInitialized:
		decoded, err = d.decodePoolInitialized(log)
	case Deposit:
		decoded, err = d.decodeDeposit(log)
	}
	if err != nil {
		return nil, err
	}

	return &model.TypedEvent{
		ID:        log.ID,
		Address:   log.Address,
		EventName: name,
		Timestamp: log.Timestamp,
		Decoded:   decoded,
		Raw:       &model.RawLogRef{Topic0: log.Topics[0], Data: log.Data},
	}, nil
}

func (d *Decoder) decodePoolInitialized(log model.LogRecord) (model.PoolInitializedData, error) {
	event := d.poolABI.Events[PoolInitialized]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.PoolInitializedData{}, err
	}

	var indexed struct {
		Pool   common.Address
		AssetX common.Address
		AssetY common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.PoolInitializedData{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.PoolInitializedData{}, err
	}
	if len(values) != 3 {
		return model.PoolInitializedData{}, fmt.Errorf("unexpected %s values: %d", event.Name, len(values))
	}
	authority, ok := values[0].(common.Address)
	if !ok {
		return model.PoolInitializedData{}, fmt.Errorf("authority type %T", values[0])
	}
	fee, ok := values[1].(uint16)
	if !ok {
		return model.PoolInitializedData{}, fmt.Errorf("fee type %T", values[1])
	}
	lpMint, ok := values[2].(common.Address)
	if !ok {
		return model.PoolInitializedData{}, fmt.Errorf("lp mint type %T", values[2])
	}

	return model.PoolInitializedData{
		Pool:      indexed.Pool.Hex(),
		AssetX:    indexed.AssetX.Hex(),
		AssetY:    indexed.AssetY.Hex(),
		Authority: authority.Hex(),
		FeeBps:    fee,
		LPMint:    lpMint.Hex(),
	}, nil
}

func (d *Decoder) decodeDeposit(log model.LogRecord) (model.DepositEventData, error) {
	event := d.poolABI.Events[Deposit]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.DepositEventData{}, err
	}

	var indexed struct {
		Pool      common.Address
		Depositor common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.DepositEventData{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.DepositEventData{}, err
	}
	if len(values) != 6 {
		return model.DepositEventData{}, fmt.Errorf("unexpected %s values: %d", event.Name, len(values))
	}
	amounts := make([]string, len(values))
	for i, value := range values {
		amount, ok := value.(uint64)
		if !ok {
			return model.DepositEventData{}, fmt.Errorf("value %d type %T", i, value)
		}
		amounts[i] = strconv.FormatUint(amount, 10)
	}

	return model.DepositEventData{
		Pool:      indexed.Pool.Hex(),
		Depositor: indexed.Depositor.Hex(),
		AmountX:   amounts[0],
		AmountY:   amounts[1],
		LPMinted:  amounts[2],
		ReserveX:  amounts[3],
		ReserveY:  amounts[4],
		LPSupply:  amounts[5],
	}, nil
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	out := make([]common.Hash, 0, indexedCount)
	for _, topic := range topics[1:] {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, dataHex string) ([]interface{}, error) {
	data, err := hexutil.Decode(dataHex)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}
