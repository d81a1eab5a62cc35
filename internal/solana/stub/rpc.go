package stub

import (
	"context"
	"errors"
	"sync"

	"solana-token-sniper/internal/solana"
)

// ErrNotFound is returned when a canned response is missing.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient from in-memory maps for tests.
// A non-nil entry in Errors makes the named method fail.
type RPCClient struct {
	mu sync.Mutex

	Accounts       map[string]*solana.AccountInfo
	LargestHolders map[string][]solana.TokenAccountBalance
	Supplies       map[string]*solana.TokenAmount
	Transactions   map[string]*solana.Transaction
	Signatures     map[string][]solana.SignatureInfo
	Assets         map[string]*solana.Asset
	Errors         map[string]error

	Calls map[string]int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Accounts:       make(map[string]*solana.AccountInfo),
		LargestHolders: make(map[string][]solana.TokenAccountBalance),
		Supplies:       make(map[string]*solana.TokenAmount),
		Transactions:   make(map[string]*solana.Transaction),
		Signatures:     make(map[string][]solana.SignatureInfo),
		Assets:         make(map[string]*solana.Asset),
		Errors:         make(map[string]error),
		Calls:          make(map[string]int),
	}
}

// Compile-time interface check.
var _ solana.RPCClient = (*RPCClient)(nil)

func (c *RPCClient) record(method string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls[method]++
	return c.Errors[method]
}

// CallCount returns how many times a method was called.
func (c *RPCClient) CallCount(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Calls[method]
}

// GetAccountInfo returns the stored account or nil.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	if err := c.record("getAccountInfo"); err != nil {
		return nil, err
	}
	return c.Accounts[pubkey], nil
}

// GetMultipleAccounts returns stored accounts in request order.
func (c *RPCClient) GetMultipleAccounts(_ context.Context, pubkeys []string) ([]*solana.AccountInfo, error) {
	if err := c.record("getMultipleAccounts"); err != nil {
		return nil, err
	}
	out := make([]*solana.AccountInfo, len(pubkeys))
	for i, k := range pubkeys {
		out[i] = c.Accounts[k]
	}
	return out, nil
}

// GetTokenLargestAccounts returns stored holders for a mint.
func (c *RPCClient) GetTokenLargestAccounts(_ context.Context, mint string) ([]solana.TokenAccountBalance, error) {
	if err := c.record("getTokenLargestAccounts"); err != nil {
		return nil, err
	}
	return c.LargestHolders[mint], nil
}

// GetTokenSupply returns the stored supply for a mint.
func (c *RPCClient) GetTokenSupply(_ context.Context, mint string) (*solana.TokenAmount, error) {
	if err := c.record("getTokenSupply"); err != nil {
		return nil, err
	}
	supply, ok := c.Supplies[mint]
	if !ok {
		return nil, ErrNotFound
	}
	return supply, nil
}

// GetSignaturesForAddress retrieves signatures for an address from the stub store.
func (c *RPCClient) GetSignaturesForAddress(_ context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	if err := c.record("getSignaturesForAddress"); err != nil {
		return nil, err
	}
	sigs := c.Signatures[address]
	if opts != nil && opts.Before != "" {
		for i, s := range sigs {
			if s.Signature == opts.Before {
				sigs = sigs[i+1:]
				break
			}
		}
	}
	if opts != nil && opts.Limit > 0 && opts.Limit < len(sigs) {
		return sigs[:opts.Limit], nil
	}
	return sigs, nil
}

// GetTransaction retrieves a transaction by signature from the stub store.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	if err := c.record("getTransaction"); err != nil {
		return nil, err
	}
	return c.Transactions[signature], nil
}

// GetAsset returns stored DAS metadata.
func (c *RPCClient) GetAsset(_ context.Context, id string) (*solana.Asset, error) {
	if err := c.record("getAsset"); err != nil {
		return nil, err
	}
	asset, ok := c.Assets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return asset, nil
}
