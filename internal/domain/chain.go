package domain

// Chain identifies the network a token lives on.
type Chain string

const (
	ChainSolana   Chain = "solana"
	ChainEthereum Chain = "ethereum"
	ChainBSC      Chain = "bsc"
	ChainBase     Chain = "base"
)

// ChainFamily groups chains by how token permissions are modelled.
type ChainFamily string

const (
	// ChainFamilyAccount covers account-model chains where authorities live in the mint account.
	ChainFamilyAccount ChainFamily = "account"
	// ChainFamilyContract covers contract-model chains where permissions live in bytecode.
	ChainFamilyContract ChainFamily = "contract"
)

// Family returns the chain family. Unknown chains are treated as contract-model.
func (c Chain) Family() ChainFamily {
	if c == ChainSolana || c == "" {
		return ChainFamilyAccount
	}
	return ChainFamilyContract
}

// EVMChainID returns the numeric chain id used by EVM tooling, 0 for non-EVM chains.
func (c Chain) EVMChainID() int64 {
	switch c {
	case ChainEthereum:
		return 1
	case ChainBSC:
		return 56
	case ChainBase:
		return 8453
	default:
		return 0
	}
}

// IsValid reports whether the chain is supported.
func (c Chain) IsValid() bool {
	switch c {
	case ChainSolana, ChainEthereum, ChainBSC, ChainBase:
		return true
	}
	return false
}

func (c Chain) String() string {
	return string(c)
}
