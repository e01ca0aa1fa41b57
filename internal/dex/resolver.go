package dex

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"swapScope/internal/model"
)

// ContractCaller performs read-only contract calls. Satisfied by chain.Conn.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// PoolMetaCache caches pool metadata by address.
type PoolMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.PoolMeta
}

func NewPoolMetaCache() *PoolMetaCache {
	return &PoolMetaCache{data: make(map[common.Address]model.PoolMeta)}
}

func (c *PoolMetaCache) Get(address common.Address) (model.PoolMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *PoolMetaCache) Set(address common.Address, meta model.PoolMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// TokenMetaCache caches token metadata by address. Tokens shared by several
// pools are fetched once.
type TokenMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.TokenMeta
}

func NewTokenMetaCache() *TokenMetaCache {
	return &TokenMetaCache{data: make(map[common.Address]model.TokenMeta)}
}

func (c *TokenMetaCache) Get(address common.Address) (model.TokenMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *TokenMetaCache) Set(address common.Address, meta model.TokenMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// MetadataResolver resolves and memoizes per-pool token metadata. Concurrent
// first accesses to the same pool collapse into one underlying fetch.
type MetadataResolver struct {
	pools  *PoolMetaCache
	tokens *TokenMetaCache
	group  singleflight.Group
	logger *zap.Logger
}

func NewMetadataResolver(logger *zap.Logger) *MetadataResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetadataResolver{
		pools:  NewPoolMetaCache(),
		tokens: NewTokenMetaCache(),
		logger: logger,
	}
}

// Resolve returns the pool's metadata, fetching it on first sight. Repeated
// resolution returns the identical cached value. A failed resolution caches
// nothing, so the next event retries.
func (r *MetadataResolver) Resolve(ctx context.Context, caller ContractCaller, pool common.Address) (model.PoolMeta, error) {
	if meta, ok := r.pools.Get(pool); ok {
		return meta, nil
	}

	v, err, _ := r.group.Do(strings.ToLower(pool.Hex()), func() (interface{}, error) {
		// A racer may have finished while we waited for the flight slot.
		if meta, ok := r.pools.Get(pool); ok {
			return meta, nil
		}
		meta, err := r.fetchPoolMeta(ctx, caller, pool)
		if err != nil {
			return model.PoolMeta{}, err
		}
		r.pools.Set(pool, meta)
		return meta, nil
	})
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("resolve pool %s: %w", pool.Hex(), err)
	}
	return v.(model.PoolMeta), nil
}

func (r *MetadataResolver) fetchPoolMeta(ctx context.Context, caller ContractCaller, pool common.Address) (model.PoolMeta, error) {
	if caller == nil {
		return model.PoolMeta{}, fmt.Errorf("contract caller is nil")
	}

	poolABI, err := V3PoolABI()
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("parse pool abi: %w", err)
	}

	values, err := callMethod(ctx, caller, pool, poolABI, "token0")
	if err != nil {
		return model.PoolMeta{}, err
	}
	token0, err := asAddress(values[0])
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("token0: %w", err)
	}

	values, err = callMethod(ctx, caller, pool, poolABI, "token1")
	if err != nil {
		return model.PoolMeta{}, err
	}
	token1, err := asAddress(values[0])
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("token1: %w", err)
	}

	meta0, err := r.resolveToken(ctx, caller, token0)
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("token0 %s: %w", token0.Hex(), err)
	}
	meta1, err := r.resolveToken(ctx, caller, token1)
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("token1 %s: %w", token1.Hex(), err)
	}

	return model.PoolMeta{
		Token0:    token0.Hex(),
		Token1:    token1.Hex(),
		Symbol0:   meta0.Symbol,
		Symbol1:   meta1.Symbol,
		Decimals0: meta0.Decimals,
		Decimals1: meta1.Decimals,
	}, nil
}

func (r *MetadataResolver) resolveToken(ctx context.Context, caller ContractCaller, token common.Address) (model.TokenMeta, error) {
	if meta, ok := r.tokens.Get(token); ok {
		return meta, nil
	}

	meta, err := fetchTokenMeta(ctx, caller, token, r.logger)
	if err != nil {
		return model.TokenMeta{}, err
	}

	r.tokens.Set(token, meta)
	return meta, nil
}

// fetchTokenMeta loads token metadata via ERC20 calls. Decimals is required;
// a missing symbol degrades to a label derived from the address.
func fetchTokenMeta(ctx context.Context, caller ContractCaller, token common.Address, logger *zap.Logger) (model.TokenMeta, error) {
	meta := model.TokenMeta{Address: token.Hex()}

	stringABI, err := erc20ABIStringInstance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	values, err := callMethod(ctx, caller, token, stringABI, "decimals")
	if err != nil {
		return meta, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return meta, err
	}
	meta.Decimals = decimals

	if values, err := callMethod(ctx, caller, token, stringABI, "symbol"); err == nil {
		if symbol, ok := values[0].(string); ok && symbol != "" {
			meta.Symbol = symbol
		}
	} else if values, err := callMethod(ctx, caller, token, bytes32ABI, "symbol"); err == nil {
		if symbol, ok := bytes32ToString(values[0]); ok && symbol != "" {
			meta.Symbol = symbol
		}
	} else if logger != nil {
		logger.Warn("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	if meta.Symbol == "" {
		meta.Symbol = fallbackSymbol(token)
	}

	return meta, nil
}

// fallbackSymbol derives a short label from the token address for tokens
// that do not expose a symbol.
func fallbackSymbol(token common.Address) string {
	hex := strings.ToUpper(strings.TrimPrefix(token.Hex(), "0x"))
	if len(hex) <= 6 {
		return hex
	}
	return hex[:3] + hex[len(hex)-3:]
}

func callMethod(ctx context.Context, caller ContractCaller, to common.Address, parsed abi.ABI, method string) ([]interface{}, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case uint16:
		return uint8(v), nil
	case uint32:
		return uint8(v), nil
	case uint64:
		return uint8(v), nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}
