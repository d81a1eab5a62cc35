package evm

import "bytes"

// opPush4 is the EVM opcode that pushes a 4-byte immediate; dispatchers
// compare the call selector against PUSH4 constants.
const opPush4 = 0x63

// PermissionSelectors is the result of the bytecode selector heuristic.
//
// Heuristic only: a selector in the dispatcher does not prove the function is
// reachable or privileged, and renamed or proxied functions are missed.
type PermissionSelectors struct {
	Mint      bool
	Pause     bool
	Blacklist bool
}

var (
	mintSelectors = [][]byte{
		{0x40, 0xc1, 0x0f, 0x19}, // mint(address,uint256)
		{0xa0, 0x71, 0x2d, 0x68}, // mint(uint256)
	}
	pauseSelectors = [][]byte{
		{0x84, 0x56, 0xcb, 0x59}, // pause()
	}
	blacklistSelectors = [][]byte{
		{0xf9, 0xf9, 0x2b, 0xe4}, // blacklist(address)
		{0x44, 0x33, 0x7e, 0xa1}, // addToBlacklist(address)
		{0x0e, 0xcb, 0x93, 0xc0}, // isBlackListed(address)
		{0xe4, 0x99, 0x7d, 0xc5}, // removeBlackList(address)
	}
)

// ScanSelectors looks for permission-related selectors pushed by the contract dispatcher.
func ScanSelectors(code []byte) PermissionSelectors {
	return PermissionSelectors{
		Mint:      hasAnySelector(code, mintSelectors),
		Pause:     hasAnySelector(code, pauseSelectors),
		Blacklist: hasAnySelector(code, blacklistSelectors),
	}
}

func hasAnySelector(code []byte, selectors [][]byte) bool {
	for _, sel := range selectors {
		if bytes.Contains(code, append([]byte{opPush4}, sel...)) {
			return true
		}
	}
	return false
}
