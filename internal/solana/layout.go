package solana

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// SPL mint account layout (82 bytes):
//
//	mintAuthority   COption<Pubkey>  u32 tag @0, pubkey @4
//	supply          u64              @36
//	decimals        u8               @44
//	isInitialized   bool             @45
//	freezeAuthority COption<Pubkey>  u32 tag @46, pubkey @50
const (
	MintMintAuthorityOptionOffset   = 0
	MintMintAuthorityOffset         = 4
	MintSupplyOffset                = 36
	MintDecimalsOffset              = 44
	MintIsInitializedOffset         = 45
	MintFreezeAuthorityOptionOffset = 46
	MintFreezeAuthorityOffset       = 50
	MintAccountLen                  = 82

	pubkeyLen = 32
)

// SPL token account layout: mint(32) | owner(32) | amount(8) | ...
const (
	TokenAccountMintOffset   = 0
	TokenAccountOwnerOffset  = 32
	TokenAccountAmountOffset = 64
	TokenAccountMinLen       = 72
)

// Raydium AMM v4 pool state layout; the LP mint sits after 32 u64 fields,
// the swap accounting block and five pubkeys.
const (
	RaydiumAMMv4ProgramID    = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	RaydiumAMMv4LPMintOffset = 464
	RaydiumAMMv4StateLen     = 752
)

// Decoding errors.
var (
	ErrAccountTooShort = errors.New("account data too short")
	ErrInvalidOption   = errors.New("invalid COption tag")
	ErrNotInitialized  = errors.New("mint not initialized")
)

// MintAccount is a decoded SPL mint.
type MintAccount struct {
	MintAuthority   string // base58, empty when None
	Supply          uint64
	Decimals        uint8
	IsInitialized   bool
	FreezeAuthority string // base58, empty when None
}

// HasMintAuthority reports whether new supply can still be minted.
func (m *MintAccount) HasMintAuthority() bool {
	return m.MintAuthority != ""
}

// HasFreezeAuthority reports whether holder accounts can be frozen.
func (m *MintAccount) HasFreezeAuthority() bool {
	return m.FreezeAuthority != ""
}

// DecodeMint decodes base64 mint account data.
// Token-2022 mints carry extensions after the base layout; only the base layout is read.
func DecodeMint(data string) (*MintAccount, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode mint data: %w", err)
	}
	return DecodeMintBytes(raw)
}

// DecodeMintBytes decodes raw mint account bytes.
func DecodeMintBytes(raw []byte) (*MintAccount, error) {
	if len(raw) < MintAccountLen {
		return nil, fmt.Errorf("%w: mint %d < %d", ErrAccountTooShort, len(raw), MintAccountLen)
	}

	mintAuth, err := readCOptionPubkey(raw, MintMintAuthorityOptionOffset, MintMintAuthorityOffset)
	if err != nil {
		return nil, fmt.Errorf("mint authority: %w", err)
	}
	freezeAuth, err := readCOptionPubkey(raw, MintFreezeAuthorityOptionOffset, MintFreezeAuthorityOffset)
	if err != nil {
		return nil, fmt.Errorf("freeze authority: %w", err)
	}

	m := &MintAccount{
		MintAuthority:   mintAuth,
		Supply:          binary.LittleEndian.Uint64(raw[MintSupplyOffset : MintSupplyOffset+8]),
		Decimals:        raw[MintDecimalsOffset],
		IsInitialized:   raw[MintIsInitializedOffset] == 1,
		FreezeAuthority: freezeAuth,
	}
	if !m.IsInitialized {
		return nil, ErrNotInitialized
	}
	return m, nil
}

func readCOptionPubkey(raw []byte, tagOffset, keyOffset int) (string, error) {
	switch binary.LittleEndian.Uint32(raw[tagOffset : tagOffset+4]) {
	case 0:
		return "", nil
	case 1:
		return base58.Encode(raw[keyOffset : keyOffset+pubkeyLen]), nil
	default:
		return "", ErrInvalidOption
	}
}

// TokenAccount is a decoded SPL token account.
type TokenAccount struct {
	Mint   string
	Owner  string
	Amount uint64
}

// DecodeTokenAccount decodes base64 token account data.
func DecodeTokenAccount(data string) (*TokenAccount, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode token account data: %w", err)
	}
	if len(raw) < TokenAccountMinLen {
		return nil, fmt.Errorf("%w: token account %d < %d", ErrAccountTooShort, len(raw), TokenAccountMinLen)
	}
	return &TokenAccount{
		Mint:   base58.Encode(raw[TokenAccountMintOffset : TokenAccountMintOffset+pubkeyLen]),
		Owner:  base58.Encode(raw[TokenAccountOwnerOffset : TokenAccountOwnerOffset+pubkeyLen]),
		Amount: binary.LittleEndian.Uint64(raw[TokenAccountAmountOffset : TokenAccountAmountOffset+8]),
	}, nil
}

// RaydiumLPMint extracts the LP mint from a Raydium AMM v4 pool account.
func RaydiumLPMint(info *AccountInfo) (string, error) {
	if info == nil {
		return "", errors.New("pool account not found")
	}
	if info.Owner != RaydiumAMMv4ProgramID {
		return "", fmt.Errorf("unsupported pool program %s", info.Owner)
	}
	raw, err := base64.StdEncoding.DecodeString(info.Data)
	if err != nil {
		return "", fmt.Errorf("decode pool data: %w", err)
	}
	if len(raw) < RaydiumAMMv4StateLen {
		return "", fmt.Errorf("%w: pool %d < %d", ErrAccountTooShort, len(raw), RaydiumAMMv4StateLen)
	}
	return base58.Encode(raw[RaydiumAMMv4LPMintOffset : RaydiumAMMv4LPMintOffset+pubkeyLen]), nil
}
