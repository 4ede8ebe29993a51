package aa

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const trueWalletABIJSON = `[
	{"type":"function","name":"execute","stateMutability":"nonpayable","inputs":[{"name":"target","type":"address"},{"name":"value","type":"uint256"},{"name":"payload","type":"bytes"}],"outputs":[]},
	{"type":"function","name":"addModule","stateMutability":"nonpayable","inputs":[{"name":"moduleAndData","type":"bytes"}],"outputs":[]},
	{"type":"function","name":"removeModule","stateMutability":"nonpayable","inputs":[{"name":"module","type":"address"}],"outputs":[]},
	{"type":"function","name":"listModules","stateMutability":"view","inputs":[],"outputs":[{"name":"modules","type":"address[]"},{"name":"selectors","type":"bytes4[][]"}]},
	{"type":"function","name":"isOwner","stateMutability":"view","inputs":[{"name":"addr","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"nonce","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

const factoryABIJSON = `[
	{"type":"function","name":"createWallet","stateMutability":"nonpayable","inputs":[{"name":"_entryPoint","type":"address"},{"name":"_walletOwner","type":"address"},{"name":"_modules","type":"bytes[]"},{"name":"_salt","type":"bytes32"}],"outputs":[{"name":"proxy","type":"address"}]},
	{"type":"function","name":"getWalletAddress","stateMutability":"view","inputs":[{"name":"_entryPoint","type":"address"},{"name":"_walletOwner","type":"address"},{"name":"_modules","type":"bytes[]"},{"name":"_salt","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]}
]`

// EntryPoint v0.6, only the reads the client needs.
const entrypointABIJSON = `[
	{"type":"function","name":"getUserOpHash","stateMutability":"view","inputs":[{"name":"userOp","type":"tuple","components":[
		{"name":"sender","type":"address"},
		{"name":"nonce","type":"uint256"},
		{"name":"initCode","type":"bytes"},
		{"name":"callData","type":"bytes"},
		{"name":"callGasLimit","type":"uint256"},
		{"name":"verificationGasLimit","type":"uint256"},
		{"name":"preVerificationGas","type":"uint256"},
		{"name":"maxFeePerGas","type":"uint256"},
		{"name":"maxPriorityFeePerGas","type":"uint256"},
		{"name":"paymasterAndData","type":"bytes"},
		{"name":"signature","type":"bytes"}]}],"outputs":[{"name":"","type":"bytes32"}]},
	{"type":"function","name":"getNonce","stateMutability":"view","inputs":[{"name":"sender","type":"address"},{"name":"key","type":"uint192"}],"outputs":[{"name":"nonce","type":"uint256"}]}
]`

const securityControlModuleABIJSON = `[
	{"type":"function","name":"basicInitialized","stateMutability":"view","inputs":[{"name":"wallet","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"fullInitialized","stateMutability":"view","inputs":[{"name":"wallet","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"execute","stateMutability":"nonpayable","inputs":[{"name":"target","type":"address"},{"name":"data","type":"bytes"}],"outputs":[]},
	{"type":"function","name":"fullInitAndAddModule","stateMutability":"nonpayable","inputs":[{"name":"target","type":"address"},{"name":"data","type":"bytes"}],"outputs":[]}
]`

const socialRecoveryModuleABIJSON = `[
	{"type":"function","name":"isInit","stateMutability":"view","inputs":[{"name":"wallet","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"getGuardians","stateMutability":"view","inputs":[{"name":"wallet","type":"address"}],"outputs":[{"name":"","type":"address[]"}]},
	{"type":"function","name":"guardiansCount","stateMutability":"view","inputs":[{"name":"wallet","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"isGuardian","stateMutability":"view","inputs":[{"name":"wallet","type":"address"},{"name":"guardian","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"threshold","stateMutability":"view","inputs":[{"name":"wallet","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"nonce","stateMutability":"view","inputs":[{"name":"wallet","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getGuardiansHash","stateMutability":"view","inputs":[{"name":"wallet","type":"address"}],"outputs":[{"name":"","type":"bytes32"}]},
	{"type":"function","name":"pendingGuardian","stateMutability":"view","inputs":[{"name":"wallet","type":"address"}],"outputs":[{"name":"pendingUntil","type":"uint256"},{"name":"pendingThreshold","type":"uint256"},{"name":"guardianHash","type":"bytes32"},{"name":"guardians","type":"address[]"}]},
	{"type":"function","name":"getRecoveryEntry","stateMutability":"view","inputs":[{"name":"wallet","type":"address"}],"outputs":[{"name":"","type":"tuple","components":[{"name":"newOwners","type":"address[]"},{"name":"executeAfter","type":"uint256"},{"name":"nonce","type":"uint256"}]}]},
	{"type":"function","name":"getRecoveryApprovals","stateMutability":"view","inputs":[{"name":"wallet","type":"address"},{"name":"newOwners","type":"address[]"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"hasGuardianApproved","stateMutability":"view","inputs":[{"name":"guardian","type":"address"},{"name":"wallet","type":"address"},{"name":"newOwners","type":"address[]"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getSocialRecoveryHash","stateMutability":"view","inputs":[{"name":"wallet","type":"address"},{"name":"newOwners","type":"address[]"},{"name":"nonce","type":"uint256"}],"outputs":[{"name":"","type":"bytes32"}]},
	{"type":"function","name":"approveRecovery","stateMutability":"nonpayable","inputs":[{"name":"wallet","type":"address"},{"name":"newOwners","type":"address[]"}],"outputs":[]},
	{"type":"function","name":"batchApproveRecovery","stateMutability":"nonpayable","inputs":[{"name":"wallet","type":"address"},{"name":"newOwners","type":"address[]"},{"name":"signatureCount","type":"uint256"},{"name":"signatures","type":"bytes"}],"outputs":[]},
	{"type":"function","name":"cancelRecovery","stateMutability":"nonpayable","inputs":[{"name":"wallet","type":"address"}],"outputs":[]},
	{"type":"function","name":"cancelSetGuardians","stateMutability":"nonpayable","inputs":[{"name":"wallet","type":"address"}],"outputs":[]},
	{"type":"function","name":"executeRecovery","stateMutability":"nonpayable","inputs":[{"name":"wallet","type":"address"}],"outputs":[]},
	{"type":"function","name":"processGuardianUpdates","stateMutability":"nonpayable","inputs":[{"name":"wallet","type":"address"}],"outputs":[]},
	{"type":"function","name":"revealAnonymousGuardians","stateMutability":"nonpayable","inputs":[{"name":"wallet","type":"address"},{"name":"guardians","type":"address[]"},{"name":"salt","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"updatePendingGuardians","stateMutability":"nonpayable","inputs":[{"name":"wallet","type":"address"},{"name":"threshold","type":"uint256"},{"name":"guardianHash","type":"bytes32"}],"outputs":[]}
]`

const erc20ABIJSON = `[
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"recipient","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

// Parsed ABIs. A malformed definition is a programming error.
var (
	TrueWalletABI            = mustParseABI("TrueWallet", trueWalletABIJSON)
	FactoryABI               = mustParseABI("TrueWalletFactory", factoryABIJSON)
	EntrypointABI            = mustParseABI("EntryPoint", entrypointABIJSON)
	SecurityControlModuleABI = mustParseABI("SecurityControlModule", securityControlModuleABIJSON)
	SocialRecoveryModuleABI  = mustParseABI("SocialRecoveryModule", socialRecoveryModuleABIJSON)
	ERC20ABI                 = mustParseABI("ERC20", erc20ABIJSON)
)

func mustParseABI(name, definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(fmt.Errorf("Invalid %s ABI: %w", name, err))
	}
	return parsed
}
