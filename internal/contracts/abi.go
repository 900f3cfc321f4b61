package contracts

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// lazyABI parses an ABI JSON document once.
type lazyABI struct {
	json   string
	once   sync.Once
	parsed abi.ABI
	err    error
}

func (l *lazyABI) get() (abi.ABI, error) {
	l.once.Do(func() {
		l.parsed, l.err = abi.JSON(strings.NewReader(l.json))
	})
	return l.parsed, l.err
}

const vaultV3EventsJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "pool", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "factory", "type": "address"},
      {"indexed": false, "internalType": "struct TokenConfig[]", "name": "tokenConfig", "type": "tuple[]", "components": [
        {"internalType": "contract IERC20", "name": "token", "type": "address"},
        {"internalType": "enum TokenType", "name": "tokenType", "type": "uint8"},
        {"internalType": "contract IRateProvider", "name": "rateProvider", "type": "address"},
        {"internalType": "bool", "name": "paysYieldFees", "type": "bool"}
      ]},
      {"indexed": false, "internalType": "uint256", "name": "swapFeePercentage", "type": "uint256"},
      {"indexed": false, "internalType": "uint32", "name": "pauseWindowEndTime", "type": "uint32"},
      {"indexed": false, "internalType": "struct PoolRoleAccounts", "name": "roleAccounts", "type": "tuple", "components": [
        {"internalType": "address", "name": "pauseManager", "type": "address"},
        {"internalType": "address", "name": "swapFeeManager", "type": "address"},
        {"internalType": "address", "name": "poolCreator", "type": "address"}
      ]},
      {"indexed": false, "internalType": "struct HooksConfig", "name": "hooksConfig", "type": "tuple", "components": [
        {"internalType": "bool", "name": "enableHookAdjustedAmounts", "type": "bool"},
        {"internalType": "bool", "name": "shouldCallBeforeInitialize", "type": "bool"},
        {"internalType": "bool", "name": "shouldCallAfterInitialize", "type": "bool"},
        {"internalType": "bool", "name": "shouldCallComputeDynamicSwapFee", "type": "bool"},
        {"internalType": "bool", "name": "shouldCallBeforeSwap", "type": "bool"},
        {"internalType": "bool", "name": "shouldCallAfterSwap", "type": "bool"},
        {"internalType": "bool", "name": "shouldCallBeforeAddLiquidity", "type": "bool"},
        {"internalType": "bool", "name": "shouldCallAfterAddLiquidity", "type": "bool"},
        {"internalType": "bool", "name": "shouldCallBeforeRemoveLiquidity", "type": "bool"},
        {"internalType": "bool", "name": "shouldCallAfterRemoveLiquidity", "type": "bool"},
        {"internalType": "address", "name": "hooksContract", "type": "address"}
      ]},
      {"indexed": false, "internalType": "struct LiquidityManagement", "name": "liquidityManagement", "type": "tuple", "components": [
        {"internalType": "bool", "name": "disableUnbalancedLiquidity", "type": "bool"},
        {"internalType": "bool", "name": "enableAddLiquidityCustom", "type": "bool"},
        {"internalType": "bool", "name": "enableRemoveLiquidityCustom", "type": "bool"},
        {"internalType": "bool", "name": "enableDonation", "type": "bool"}
      ]}
    ],
    "name": "PoolRegistered",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "pool", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "liquidityProvider", "type": "address"},
      {"indexed": true, "internalType": "enum AddLiquidityKind", "name": "kind", "type": "uint8"},
      {"indexed": false, "internalType": "uint256", "name": "totalSupply", "type": "uint256"},
      {"indexed": false, "internalType": "uint256[]", "name": "amountsAddedRaw", "type": "uint256[]"},
      {"indexed": false, "internalType": "uint256[]", "name": "swapFeeAmountsRaw", "type": "uint256[]"}
    ],
    "name": "LiquidityAdded",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "pool", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "liquidityProvider", "type": "address"},
      {"indexed": true, "internalType": "enum RemoveLiquidityKind", "name": "kind", "type": "uint8"},
      {"indexed": false, "internalType": "uint256", "name": "totalSupply", "type": "uint256"},
      {"indexed": false, "internalType": "uint256[]", "name": "amountsRemovedRaw", "type": "uint256[]"},
      {"indexed": false, "internalType": "uint256[]", "name": "swapFeeAmountsRaw", "type": "uint256[]"}
    ],
    "name": "LiquidityRemoved",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "pool", "type": "address"},
      {"indexed": true, "internalType": "contract IERC20", "name": "tokenIn", "type": "address"},
      {"indexed": true, "internalType": "contract IERC20", "name": "tokenOut", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amountIn", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "amountOut", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "swapFeePercentage", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "swapFeeAmount", "type": "uint256"}
    ],
    "name": "Swap",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "pool", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "swapFeePercentage", "type": "uint256"}
    ],
    "name": "SwapFeePercentageChanged",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "pool", "type": "address"},
      {"indexed": false, "internalType": "bool", "name": "paused", "type": "bool"}
    ],
    "name": "PoolPausedStateChanged",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "bool", "name": "paused", "type": "bool"}
    ],
    "name": "VaultPausedStateChanged",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "contract IAuthorizer", "name": "newAuthorizer", "type": "address"}
    ],
    "name": "AuthorizerChanged",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "contract IERC4626", "name": "wrappedToken", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amountUnderlying", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "amountWrapped", "type": "uint256"},
      {"indexed": false, "internalType": "bytes32", "name": "bufferBalances", "type": "bytes32"}
    ],
    "name": "LiquidityAddedToBuffer",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "contract IERC4626", "name": "wrappedToken", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amountUnderlying", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "amountWrapped", "type": "uint256"},
      {"indexed": false, "internalType": "bytes32", "name": "bufferBalances", "type": "bytes32"}
    ],
    "name": "LiquidityRemovedFromBuffer",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "contract IERC4626", "name": "wrappedToken", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "depositedUnderlying", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "mintedShares", "type": "uint256"},
      {"indexed": false, "internalType": "bytes32", "name": "bufferBalances", "type": "bytes32"}
    ],
    "name": "Wrap",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "contract IERC4626", "name": "wrappedToken", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "burnedShares", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "withdrawnUnderlying", "type": "uint256"},
      {"indexed": false, "internalType": "bytes32", "name": "bufferBalances", "type": "bytes32"}
    ],
    "name": "Unwrap",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "contract IERC4626", "name": "wrappedToken", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "issuedShares", "type": "uint256"}
    ],
    "name": "BufferSharesMinted",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "contract IERC4626", "name": "wrappedToken", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "from", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "burnedShares", "type": "uint256"}
    ],
    "name": "BufferSharesBurned",
    "type": "event"
  }
]`

// Buffer events from deployments that predate packed buffer balances.
const legacyBufferEventsJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "contract IERC4626", "name": "wrappedToken", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amountUnderlying", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "amountWrapped", "type": "uint256"}
    ],
    "name": "LiquidityAddedToBuffer",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "contract IERC4626", "name": "wrappedToken", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amountUnderlying", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "amountWrapped", "type": "uint256"}
    ],
    "name": "LiquidityRemovedFromBuffer",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "contract IERC4626", "name": "wrappedToken", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "depositedUnderlying", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "mintedShares", "type": "uint256"}
    ],
    "name": "Wrap",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "contract IERC4626", "name": "wrappedToken", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "burnedShares", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "withdrawnUnderlying", "type": "uint256"}
    ],
    "name": "Unwrap",
    "type": "event"
  }
]`

const feeControllerEventsJSON = `[
  {"anonymous": false, "inputs": [{"indexed": false, "internalType": "uint256", "name": "swapFeePercentage", "type": "uint256"}], "name": "GlobalProtocolSwapFeePercentageChanged", "type": "event"},
  {"anonymous": false, "inputs": [{"indexed": false, "internalType": "uint256", "name": "yieldFeePercentage", "type": "uint256"}], "name": "GlobalProtocolYieldFeePercentageChanged", "type": "event"},
  {"anonymous": false, "inputs": [
    {"indexed": true, "internalType": "address", "name": "pool", "type": "address"},
    {"indexed": false, "internalType": "uint256", "name": "swapFeePercentage", "type": "uint256"}
  ], "name": "ProtocolSwapFeePercentageChanged", "type": "event"},
  {"anonymous": false, "inputs": [
    {"indexed": true, "internalType": "address", "name": "pool", "type": "address"},
    {"indexed": false, "internalType": "uint256", "name": "yieldFeePercentage", "type": "uint256"}
  ], "name": "ProtocolYieldFeePercentageChanged", "type": "event"},
  {"anonymous": false, "inputs": [
    {"indexed": true, "internalType": "address", "name": "pool", "type": "address"},
    {"indexed": false, "internalType": "uint256", "name": "poolCreatorSwapFeePercentage", "type": "uint256"}
  ], "name": "PoolCreatorSwapFeePercentageChanged", "type": "event"},
  {"anonymous": false, "inputs": [
    {"indexed": true, "internalType": "address", "name": "pool", "type": "address"},
    {"indexed": false, "internalType": "uint256", "name": "poolCreatorYieldFeePercentage", "type": "uint256"}
  ], "name": "PoolCreatorYieldFeePercentageChanged", "type": "event"},
  {"anonymous": false, "inputs": [
    {"indexed": true, "internalType": "address", "name": "pool", "type": "address"},
    {"indexed": true, "internalType": "contract IERC20", "name": "token", "type": "address"},
    {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
  ], "name": "ProtocolSwapFeeCollected", "type": "event"},
  {"anonymous": false, "inputs": [
    {"indexed": true, "internalType": "address", "name": "pool", "type": "address"},
    {"indexed": true, "internalType": "contract IERC20", "name": "token", "type": "address"},
    {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
  ], "name": "ProtocolYieldFeeCollected", "type": "event"},
  {"anonymous": false, "inputs": [
    {"indexed": true, "internalType": "address", "name": "pool", "type": "address"},
    {"indexed": true, "internalType": "contract IERC20", "name": "token", "type": "address"},
    {"indexed": true, "internalType": "address", "name": "recipient", "type": "address"},
    {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
  ], "name": "ProtocolFeesWithdrawn", "type": "event"}
]`

const vaultV2EventsJSON = `[
  {"anonymous": false, "inputs": [
    {"indexed": true, "internalType": "bytes32", "name": "poolId", "type": "bytes32"},
    {"indexed": false, "internalType": "contract IERC20[]", "name": "tokens", "type": "address[]"},
    {"indexed": false, "internalType": "address[]", "name": "assetManagers", "type": "address[]"}
  ], "name": "TokensRegistered", "type": "event"},
  {"anonymous": false, "inputs": [
    {"indexed": true, "internalType": "bytes32", "name": "poolId", "type": "bytes32"},
    {"indexed": true, "internalType": "address", "name": "liquidityProvider", "type": "address"},
    {"indexed": false, "internalType": "contract IERC20[]", "name": "tokens", "type": "address[]"},
    {"indexed": false, "internalType": "int256[]", "name": "deltas", "type": "int256[]"},
    {"indexed": false, "internalType": "uint256[]", "name": "protocolFeeAmounts", "type": "uint256[]"}
  ], "name": "PoolBalanceChanged", "type": "event"},
  {"anonymous": false, "inputs": [
    {"indexed": true, "internalType": "bytes32", "name": "poolId", "type": "bytes32"},
    {"indexed": true, "internalType": "contract IERC20", "name": "tokenIn", "type": "address"},
    {"indexed": true, "internalType": "contract IERC20", "name": "tokenOut", "type": "address"},
    {"indexed": false, "internalType": "uint256", "name": "amountIn", "type": "uint256"},
    {"indexed": false, "internalType": "uint256", "name": "amountOut", "type": "uint256"}
  ], "name": "Swap", "type": "event"},
  {"anonymous": false, "inputs": [{"indexed": false, "internalType": "bool", "name": "paused", "type": "bool"}], "name": "PausedStateChanged", "type": "event"}
]`

const feesCollectorEventsJSON = `[
  {"anonymous": false, "inputs": [{"indexed": false, "internalType": "uint256", "name": "newSwapFeePercentage", "type": "uint256"}], "name": "SwapFeePercentageChanged", "type": "event"},
  {"anonymous": false, "inputs": [{"indexed": false, "internalType": "uint256", "name": "newFlashLoanFeePercentage", "type": "uint256"}], "name": "FlashLoanFeePercentageChanged", "type": "event"}
]`

// Events emitted by pool contracts themselves.
const poolEventsJSON = `[
  {"anonymous": false, "inputs": [
    {"indexed": true, "internalType": "address", "name": "from", "type": "address"},
    {"indexed": true, "internalType": "address", "name": "to", "type": "address"},
    {"indexed": false, "internalType": "uint256", "name": "value", "type": "uint256"}
  ], "name": "Transfer", "type": "event"},
  {"anonymous": false, "inputs": [{"indexed": false, "internalType": "uint256", "name": "swapFeePercentage", "type": "uint256"}], "name": "SwapFeePercentageChanged", "type": "event"},
  {"anonymous": false, "inputs": [{"indexed": false, "internalType": "bool", "name": "paused", "type": "bool"}], "name": "PausedStateChanged", "type": "event"}
]`

const factoryEventsJSON = `[
  {"anonymous": false, "inputs": [{"indexed": true, "internalType": "address", "name": "pool", "type": "address"}], "name": "PoolCreated", "type": "event"},
  {"anonymous": false, "inputs": [
    {"indexed": true, "internalType": "address", "name": "pool", "type": "address"},
    {"indexed": true, "internalType": "address", "name": "factory", "type": "address"}
  ], "name": "StableSurgeHookRegistered", "type": "event"}
]`

const readsJSON = `[
  {"inputs": [], "name": "getProtocolFeeController", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "pool", "type": "address"}], "name": "getStaticSwapFeePercentage", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "pool", "type": "address"}, {"name": "token", "type": "address"}], "name": "getAggregateYieldFeeAmount", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "getAuthorizer", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "getProtocolFeesCollector", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "getSwapFeePercentage", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "getFlashLoanFeePercentage", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "getRateProviders", "outputs": [{"type": "address[]"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "getActualSupply", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "getNormalizedWeights", "outputs": [{"type": "uint256[]"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "getAmplificationParameter", "outputs": [{"name": "value", "type": "uint256"}, {"name": "isUpdating", "type": "bool"}, {"name": "precision", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "asset", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "pool", "type": "address"}], "name": "getMaxSurgeFeePercentage", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "pool", "type": "address"}], "name": "getSurgeThresholdPercentage", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "getGyro2CLPPoolImmutableData", "outputs": [{"name": "data", "type": "tuple", "components": [
    {"name": "tokens", "type": "address[]"},
    {"name": "decimalScalingFactors", "type": "uint256[]"},
    {"name": "sqrtAlpha", "type": "uint256"},
    {"name": "sqrtBeta", "type": "uint256"}
  ]}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "getECLPParams", "outputs": [
    {"name": "params", "type": "tuple", "components": [
      {"name": "alpha", "type": "int256"},
      {"name": "beta", "type": "int256"},
      {"name": "c", "type": "int256"},
      {"name": "s", "type": "int256"},
      {"name": "lambda", "type": "int256"}
    ]},
    {"name": "d", "type": "tuple", "components": [
      {"name": "tauAlpha", "type": "tuple", "components": [{"name": "x", "type": "int256"}, {"name": "y", "type": "int256"}]},
      {"name": "tauBeta", "type": "tuple", "components": [{"name": "x", "type": "int256"}, {"name": "y", "type": "int256"}]},
      {"name": "u", "type": "int256"},
      {"name": "v", "type": "int256"},
      {"name": "w", "type": "int256"},
      {"name": "z", "type": "int256"},
      {"name": "dSq", "type": "int256"}
    ]}
  ], "stateMutability": "view", "type": "function"}
]`

var (
	vaultV3Events       = &lazyABI{json: vaultV3EventsJSON}
	legacyBufferEvents  = &lazyABI{json: legacyBufferEventsJSON}
	feeControllerEvents = &lazyABI{json: feeControllerEventsJSON}
	vaultV2Events       = &lazyABI{json: vaultV2EventsJSON}
	feesCollectorEvents = &lazyABI{json: feesCollectorEventsJSON}
	poolEvents          = &lazyABI{json: poolEventsJSON}
	factoryEvents       = &lazyABI{json: factoryEventsJSON}
	reads               = &lazyABI{json: readsJSON}
)

// VaultV3ABI returns the v3 vault event ABI.
func VaultV3ABI() (abi.ABI, error) { return vaultV3Events.get() }

func LegacyBufferABI() (abi.ABI, error)  { return legacyBufferEvents.get() }
func FeeControllerABI() (abi.ABI, error) { return feeControllerEvents.get() }
func VaultV2ABI() (abi.ABI, error)       { return vaultV2Events.get() }
func FeesCollectorABI() (abi.ABI, error) { return feesCollectorEvents.get() }
func PoolABI() (abi.ABI, error)          { return poolEvents.get() }
func FactoryABI() (abi.ABI, error)       { return factoryEvents.get() }
func ReadsABI() (abi.ABI, error)         { return reads.get() }
