package solana

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// MetaplexProgramID is the Token Metadata program.
const MetaplexProgramID = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"

// TokenMetadata is the name and symbol stored in a Metaplex metadata account.
type TokenMetadata struct {
	Name   string
	Symbol string
}

// FetchTokenMetadata reads name and symbol, preferring DAS and falling back
// to the Metaplex metadata PDA for endpoints without DAS support.
func FetchTokenMetadata(ctx context.Context, rpc RPCClient, mint string) (*TokenMetadata, error) {
	if asset, err := rpc.GetAsset(ctx, mint); err == nil && asset != nil && asset.Content.Metadata.Symbol != "" {
		return &TokenMetadata{
			Name:   asset.Content.Metadata.Name,
			Symbol: asset.Content.Metadata.Symbol,
		}, nil
	}

	pda, err := MetadataPDA(mint)
	if err != nil {
		return nil, err
	}
	info, err := rpc.GetAccountInfo(ctx, pda)
	if err != nil {
		return nil, fmt.Errorf("get metadata account: %w", err)
	}
	if info == nil {
		return nil, fmt.Errorf("metadata account %s not found", pda)
	}
	return ParseMetaplexMetadata(info.Data)
}

// MetadataPDA derives the Metaplex metadata address for a mint.
// Seeds: ["metadata", program_id, mint]
func MetadataPDA(mint string) (string, error) {
	mintBytes, err := base58.Decode(mint)
	if err != nil || len(mintBytes) != pubkeyLen {
		return "", fmt.Errorf("invalid mint %q", mint)
	}
	programBytes, err := base58.Decode(MetaplexProgramID)
	if err != nil {
		return "", fmt.Errorf("decode metaplex program: %w", err)
	}

	pda := FindProgramAddress([][]byte{[]byte("metadata"), programBytes, mintBytes}, programBytes)
	if pda == "" {
		return "", fmt.Errorf("no valid bump for mint %s", mint)
	}
	return pda, nil
}

// FindProgramAddress returns the first off-curve address searching bumps from 255 down.
func FindProgramAddress(seeds [][]byte, programID []byte) string {
	for bump := 255; bump >= 0; bump-- {
		h := sha256.New()
		for _, seed := range seeds {
			h.Write(seed)
		}
		h.Write([]byte{byte(bump)})
		h.Write(programID)
		h.Write([]byte("ProgramDerivedAddress"))
		sum := h.Sum(nil)

		if !isOnCurve(sum) {
			return base58.Encode(sum)
		}
	}
	return ""
}

func isOnCurve(point []byte) bool {
	if len(point) != pubkeyLen {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// ParseMetaplexMetadata parses name and symbol from base64 metadata account data.
// Layout: key u8 | update_authority 32 | mint 32 | name borsh string | symbol borsh string | ...
func ParseMetaplexMetadata(data string) (*TokenMetadata, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	const metadataV1Key = 4
	if len(raw) < 1+2*pubkeyLen || raw[0] != metadataV1Key {
		return nil, fmt.Errorf("not a metadata v1 account")
	}

	offset := 1 + 2*pubkeyLen
	name, offset, err := readBorshString(raw, offset, 64)
	if err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	symbol, _, err := readBorshString(raw, offset, 16)
	if err != nil {
		return nil, fmt.Errorf("symbol: %w", err)
	}
	return &TokenMetadata{Name: name, Symbol: symbol}, nil
}

func readBorshString(raw []byte, offset, maxLen int) (string, int, error) {
	if offset+4 > len(raw) {
		return "", offset, ErrAccountTooShort
	}
	n := int(binary.LittleEndian.Uint32(raw[offset:]))
	offset += 4
	if n > maxLen || offset+n > len(raw) {
		return "", offset, fmt.Errorf("string length %d out of range", n)
	}
	s := strings.TrimRight(string(raw[offset:offset+n]), "\x00")
	return s, offset + n, nil
}
