// Package evm inspects ERC-20 tokens on contract-model chains: ownership,
// permission selectors in bytecode, and LP token lock/burn balances.
package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"solana-token-sniper/internal/domain"
)

// EthClient is the subset of ethclient.Client the inspector needs.
type EthClient interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

var _ EthClient = (*ethclient.Client)(nil)

// ErrNotContract means the address holds no bytecode.
var ErrNotContract = errors.New("address has no contract code")

// Function selectors used by the inspector.
var (
	selectorOwner       = common.FromHex("0x8da5cb5b") // owner()
	selectorGetOwner    = common.FromHex("0x893d20e8") // getOwner()
	selectorTotalSupply = common.FromHex("0x18160ddd") // totalSupply()
	selectorBalanceOf   = common.FromHex("0x70a08231") // balanceOf(address)
)

// Dial connects to an EVM JSON-RPC endpoint.
func Dial(ctx context.Context, rawURL string) (*ethclient.Client, error) {
	c, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, domain.Upstream("evm dial", err)
	}
	return c, nil
}

// ParseAddress validates a hex address.
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, domain.Validationf("invalid evm address %q", s)
	}
	return common.HexToAddress(s), nil
}

// Inspector reads token state through an EthClient.
type Inspector struct {
	client EthClient
}

// NewInspector creates an Inspector.
func NewInspector(client EthClient) *Inspector {
	return &Inspector{client: client}
}

// Authority reports ownership and permission flags for a token contract.
// The owner() and getOwner() calls are tried in order; a revert or empty
// result from both means ownership is renounced or was never present.
func (i *Inspector) Authority(ctx context.Context, token string) (domain.AuthorityFlags, error) {
	addr, err := ParseAddress(token)
	if err != nil {
		return domain.AuthorityFlags{}, err
	}

	code, err := i.client.CodeAt(ctx, addr, nil)
	if err != nil {
		return domain.AuthorityFlags{}, domain.Upstream("evm code", err)
	}
	if len(code) == 0 {
		return domain.AuthorityFlags{}, fmt.Errorf("%s: %w", token, ErrNotContract)
	}

	flags := domain.AuthorityFlags{OwnerRenounced: true}
	for _, sel := range [][]byte{selectorOwner, selectorGetOwner} {
		out, err := i.client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: sel}, nil)
		if err != nil || len(out) < 32 {
			continue
		}
		owner := common.BytesToAddress(out[12:32])
		if owner != (common.Address{}) {
			flags.Owner = owner.Hex()
			flags.OwnerRenounced = false
		}
		break
	}

	perms := ScanSelectors(code)
	flags.CanMint = perms.Mint
	flags.CanPause = perms.Pause
	flags.CanBlacklist = perms.Blacklist
	// Owner-gated powers only matter while someone holds ownership.
	flags.HasMintAuthority = perms.Mint && !flags.OwnerRenounced
	return flags, nil
}

// TotalSupply calls totalSupply() on an ERC-20.
func (i *Inspector) TotalSupply(ctx context.Context, token common.Address) (*big.Int, error) {
	out, err := i.client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: selectorTotalSupply}, nil)
	if err != nil {
		return nil, domain.Upstream("evm totalSupply", err)
	}
	return decodeUint(out)
}

// BalanceOf calls balanceOf(holder) on an ERC-20.
func (i *Inspector) BalanceOf(ctx context.Context, token, holder common.Address) (*big.Int, error) {
	data := make([]byte, 0, 36)
	data = append(data, selectorBalanceOf...)
	data = append(data, common.LeftPadBytes(holder.Bytes(), 32)...)
	out, err := i.client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, domain.Upstream("evm balanceOf", err)
	}
	return decodeUint(out)
}

func decodeUint(out []byte) (*big.Int, error) {
	if len(out) < 32 {
		return nil, fmt.Errorf("short uint256 return: %d bytes", len(out))
	}
	return new(big.Int).SetBytes(out[:32]), nil
}
