package rpcservice

import (
	"context"

	"solana-token-sniper/internal/solana"
)

// ChainReader returns a solana.RPCClient that resolves the active endpoint
// on every call, so reads follow SetCustomRPC.
func (s *Service) ChainReader() solana.RPCClient {
	return activeReader{s: s}
}

type activeReader struct {
	s *Service
}

var _ solana.RPCClient = activeReader{}

func (r activeReader) GetAccountInfo(ctx context.Context, pubkey string) (*solana.AccountInfo, error) {
	return r.s.ActiveClient().GetAccountInfo(ctx, pubkey)
}

func (r activeReader) GetMultipleAccounts(ctx context.Context, pubkeys []string) ([]*solana.AccountInfo, error) {
	return r.s.ActiveClient().GetMultipleAccounts(ctx, pubkeys)
}

func (r activeReader) GetTokenLargestAccounts(ctx context.Context, mint string) ([]solana.TokenAccountBalance, error) {
	return r.s.ActiveClient().GetTokenLargestAccounts(ctx, mint)
}

func (r activeReader) GetTokenSupply(ctx context.Context, mint string) (*solana.TokenAmount, error) {
	return r.s.ActiveClient().GetTokenSupply(ctx, mint)
}

func (r activeReader) GetSignaturesForAddress(ctx context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	return r.s.ActiveClient().GetSignaturesForAddress(ctx, address, opts)
}

func (r activeReader) GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error) {
	return r.s.ActiveClient().GetTransaction(ctx, signature)
}

func (r activeReader) GetAsset(ctx context.Context, id string) (*solana.Asset, error) {
	return r.s.ActiveClient().GetAsset(ctx, id)
}
