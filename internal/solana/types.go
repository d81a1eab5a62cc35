package solana

// SignatureInfo contains signature metadata.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts contains pagination options for GetSignaturesForAddress.
type SignaturesOpts struct {
	Before string
	Until  string
	Limit  int
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}

// TokenAmount is an SPL token amount as returned by the RPC.
type TokenAmount struct {
	Amount         string  `json:"amount"` // raw base units
	Decimals       uint8   `json:"decimals"`
	UIAmount       float64 `json:"uiAmount"`
	UIAmountString string  `json:"uiAmountString"`
}

// TokenAccountBalance is one entry of getTokenLargestAccounts.
type TokenAccountBalance struct {
	Address string `json:"address"`
	TokenAmount
}

// Blockhash is the result of getLatestBlockhash.
type Blockhash struct {
	Blockhash            string
	LastValidBlockHeight uint64
	Slot                 int64
}

// SignatureStatus is the confirmation state of a submitted transaction.
type SignatureStatus struct {
	Slot               int64       `json:"slot"`
	Confirmations      *int64      `json:"confirmations"`
	Err                interface{} `json:"err"`
	ConfirmationStatus string      `json:"confirmationStatus"` // processed, confirmed, finalized
}

// Reached reports whether the status satisfies the commitment.
func (s *SignatureStatus) Reached(commitment string) bool {
	if s == nil {
		return false
	}
	rank := map[string]int{"processed": 1, "confirmed": 2, "finalized": 3}
	want, ok := rank[commitment]
	if !ok {
		want = rank["confirmed"]
	}
	return rank[s.ConfirmationStatus] >= want
}

// PriorityFeeLevels is the fee ladder returned by getPriorityFeeEstimate.
type PriorityFeeLevels struct {
	Min       float64 `json:"min"`
	Low       float64 `json:"low"`
	Medium    float64 `json:"medium"`
	High      float64 `json:"high"`
	VeryHigh  float64 `json:"veryHigh"`
	UnsafeMax float64 `json:"unsafeMax"`
}

// PriorityFeeResult is the result of getPriorityFeeEstimate.
type PriorityFeeResult struct {
	PriorityFeeEstimate float64            `json:"priorityFeeEstimate"`
	PriorityFeeLevels   *PriorityFeeLevels `json:"priorityFeeLevels"`
}

// SendOpts configures sendTransaction.
type SendOpts struct {
	SkipPreflight       bool
	PreflightCommitment string
}

// Asset is the subset of a DAS getAsset response used for enrichment.
type Asset struct {
	ID      string `json:"id"`
	Content struct {
		Metadata struct {
			Name   string `json:"name"`
			Symbol string `json:"symbol"`
		} `json:"metadata"`
	} `json:"content"`
	Authorities []struct {
		Address string   `json:"address"`
		Scopes  []string `json:"scopes"`
	} `json:"authorities"`
	TokenInfo struct {
		Supply          uint64 `json:"supply"`
		Decimals        uint8  `json:"decimals"`
		MintAuthority   string `json:"mint_authority"`
		FreezeAuthority string `json:"freeze_authority"`
	} `json:"token_info"`
	Mutable bool `json:"mutable"`
}
