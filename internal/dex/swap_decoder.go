package dex

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"swapScope/internal/model"
)

// SwapDecoder decodes live V3 pool Swap logs into SwapEvents.
type SwapDecoder struct {
	swapEvent abi.Event
	swapTopic common.Hash
}

// NewSwapDecoder builds a decoder from the pool ABI.
func NewSwapDecoder() (*SwapDecoder, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	event := poolABI.Events["Swap"]
	return &SwapDecoder{
		swapEvent: event,
		swapTopic: event.ID,
	}, nil
}

// SwapTopic returns the topic0 hash of the Swap event, used as the
// subscription filter.
func (d *SwapDecoder) SwapTopic() common.Hash {
	return d.swapTopic
}

// Decode converts a raw log into a SwapEvent. A log whose topics or data do
// not match the Swap shape yields a *DecodeError.
func (d *SwapDecoder) Decode(log types.Log) (model.SwapEvent, error) {
	if len(log.Topics) == 0 {
		return model.SwapEvent{}, decodeErrorf("missing topic0")
	}
	if log.Topics[0] != d.swapTopic {
		return model.SwapEvent{}, decodeErrorf("unexpected topic0: %s", log.Topics[0].Hex())
	}
	// Swap has two indexed arguments, so three topics in total.
	if len(log.Topics) != 3 {
		return model.SwapEvent{}, decodeErrorf("expected 3 topics, got %d", len(log.Topics))
	}

	var indexed struct {
		Sender    common.Address
		Recipient common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(d.swapEvent.Inputs), log.Topics[1:]); err != nil {
		return model.SwapEvent{}, &DecodeError{Reason: "parse topics", Err: err}
	}

	values, err := d.swapEvent.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return model.SwapEvent{}, &DecodeError{Reason: "unpack data", Err: err}
	}
	if len(values) != 5 {
		return model.SwapEvent{}, decodeErrorf("unexpected swap values: %d", len(values))
	}

	amount0, err := asBigInt(values[0])
	if err != nil {
		return model.SwapEvent{}, &DecodeError{Reason: "amount0", Err: err}
	}
	amount1, err := asBigInt(values[1])
	if err != nil {
		return model.SwapEvent{}, &DecodeError{Reason: "amount1", Err: err}
	}
	sqrtPrice, err := asBigInt(values[2])
	if err != nil {
		return model.SwapEvent{}, &DecodeError{Reason: "sqrtPriceX96", Err: err}
	}
	liquidity, err := asBigInt(values[3])
	if err != nil {
		return model.SwapEvent{}, &DecodeError{Reason: "liquidity", Err: err}
	}
	tickInt, err := asBigInt(values[4])
	if err != nil {
		return model.SwapEvent{}, &DecodeError{Reason: "tick", Err: err}
	}
	tick, err := int24FromBig(tickInt)
	if err != nil {
		return model.SwapEvent{}, &DecodeError{Reason: "tick", Err: err}
	}

	return model.SwapEvent{
		Pool:         log.Address,
		Sender:       indexed.Sender,
		Recipient:    indexed.Recipient,
		Amount0:      amount0,
		Amount1:      amount1,
		SqrtPriceX96: sqrtPrice,
		Liquidity:    liquidity,
		Tick:         tick,
		BlockNumber:  log.BlockNumber,
		TxHash:       log.TxHash.Hex(),
		LogIndex:     uint64(log.Index),
	}, nil
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

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func int24FromBig(value *big.Int) (int32, error) {
	min := big.NewInt(-1 << 23)
	max := big.NewInt((1 << 23) - 1)
	if value.Cmp(min) < 0 || value.Cmp(max) > 0 {
		return 0, fmt.Errorf("int24 overflow: %s", value.String())
	}
	return int32(value.Int64()), nil
}
