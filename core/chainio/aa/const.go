package aa

import (
	"github.com/ethereum/go-ethereum/common"
)

// Well known deployments. Every one of them can be overridden through config.
var (
	DefaultEntrypointAddress            = common.HexToAddress("0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789")
	DefaultSecurityControlModuleAddress = common.HexToAddress("0x559103Ecd6cA2a0b92c973a7783dd83B9d7980ee")
	DefaultSocialRecoveryModuleAddress  = common.HexToAddress("0x929BAF181bFE97F59ecc22c3EFd33c0D9334380F")
)

// securityModuleVersion is the uint32 the security control module is
// bootstrapped with.
const securityModuleVersion uint32 = 1
