package solana

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPubkey(fill byte) []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = fill
	}
	return key
}

// buildMint encodes an SPL mint using the documented offsets.
func buildMint(mintAuth, freezeAuth []byte, supply uint64, decimals uint8, initialized bool) []byte {
	raw := make([]byte, MintAccountLen)
	if mintAuth != nil {
		binary.LittleEndian.PutUint32(raw[MintMintAuthorityOptionOffset:], 1)
		copy(raw[MintMintAuthorityOffset:], mintAuth)
	}
	binary.LittleEndian.PutUint64(raw[MintSupplyOffset:], supply)
	raw[MintDecimalsOffset] = decimals
	if initialized {
		raw[MintIsInitializedOffset] = 1
	}
	if freezeAuth != nil {
		binary.LittleEndian.PutUint32(raw[MintFreezeAuthorityOptionOffset:], 1)
		copy(raw[MintFreezeAuthorityOffset:], freezeAuth)
	}
	return raw
}

func TestDecodeMint_MintAuthorityOnly(t *testing.T) {
	auth := testPubkey(7)
	data := base64.StdEncoding.EncodeToString(buildMint(auth, nil, 1_000_000_000, 6, true))

	mint, err := DecodeMint(data)
	require.NoError(t, err)

	assert.True(t, mint.HasMintAuthority())
	assert.False(t, mint.HasFreezeAuthority())
	assert.Equal(t, base58.Encode(auth), mint.MintAuthority)
	assert.Equal(t, uint64(1_000_000_000), mint.Supply)
	assert.Equal(t, uint8(6), mint.Decimals)
	assert.True(t, mint.IsInitialized)
}

func TestDecodeMint_Revoked(t *testing.T) {
	raw := buildMint(nil, nil, 42, 9, true)
	// Revoked authorities keep stale key bytes; only the tag counts.
	copy(raw[MintMintAuthorityOffset:], testPubkey(1))

	mint, err := DecodeMintBytes(raw)
	require.NoError(t, err)
	assert.False(t, mint.HasMintAuthority())
	assert.False(t, mint.HasFreezeAuthority())
	assert.Equal(t, uint8(9), mint.Decimals)
}

func TestDecodeMint_Token2022Extensions(t *testing.T) {
	raw := append(buildMint(nil, testPubkey(3), 1, 0, true), make([]byte, 90)...)

	mint, err := DecodeMintBytes(raw)
	require.NoError(t, err)
	assert.True(t, mint.HasFreezeAuthority())
}

func TestDecodeMint_Malformed(t *testing.T) {
	badTag := buildMint(nil, nil, 1, 0, true)
	binary.LittleEndian.PutUint32(badTag[MintFreezeAuthorityOptionOffset:], 2)

	tests := []struct {
		name string
		data string
		want error
	}{
		{"short", base64.StdEncoding.EncodeToString(make([]byte, 40)), ErrAccountTooShort},
		{"invalid option tag", base64.StdEncoding.EncodeToString(badTag), ErrInvalidOption},
		{"uninitialized", base64.StdEncoding.EncodeToString(buildMint(nil, nil, 1, 0, false)), ErrNotInitialized},
		{"not base64", "!!!", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mint, err := DecodeMint(tt.data)
			require.Error(t, err)
			assert.Nil(t, mint)
			if tt.want != nil {
				assert.True(t, errors.Is(err, tt.want), "got %v", err)
			}
		})
	}
}

func TestDecodeTokenAccount(t *testing.T) {
	raw := make([]byte, 165)
	copy(raw[TokenAccountMintOffset:], testPubkey(1))
	copy(raw[TokenAccountOwnerOffset:], testPubkey(2))
	binary.LittleEndian.PutUint64(raw[TokenAccountAmountOffset:], 5000)

	acc, err := DecodeTokenAccount(base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, base58.Encode(testPubkey(1)), acc.Mint)
	assert.Equal(t, base58.Encode(testPubkey(2)), acc.Owner)
	assert.Equal(t, uint64(5000), acc.Amount)

	_, err = DecodeTokenAccount(base64.StdEncoding.EncodeToString(raw[:40]))
	assert.ErrorIs(t, err, ErrAccountTooShort)
}

func TestRaydiumLPMint(t *testing.T) {
	raw := make([]byte, RaydiumAMMv4StateLen)
	copy(raw[RaydiumAMMv4LPMintOffset:], testPubkey(9))

	info := &AccountInfo{
		Owner: RaydiumAMMv4ProgramID,
		Data:  base64.StdEncoding.EncodeToString(raw),
	}
	lp, err := RaydiumLPMint(info)
	require.NoError(t, err)
	assert.Equal(t, base58.Encode(testPubkey(9)), lp)

	info.Owner = "SomeOtherProgram"
	_, err = RaydiumLPMint(info)
	assert.Error(t, err)

	_, err = RaydiumLPMint(nil)
	assert.Error(t, err)
}
