package testutil

import "github.com/ethereum/go-ethereum/common"

// Well-known development accounts, in the order local chains hand them out.
var (
	Owner    = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	Other    = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	Third    = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	NewOwner = common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906")
)

// T0 is a fixed base time for tests (2023-11-14T22:13:20Z).
const T0 int64 = 1_700_000_000

// Common offsets in seconds.
const (
	OneHour     int64 = 3600
	TwelveHours int64 = 12 * OneHour
	OneDay      int64 = 24 * OneHour
)
