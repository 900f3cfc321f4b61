package model

// Kind names an entity table.
type Kind string

const (
	KindVault               Kind = "vault"
	KindPool                Kind = "pool"
	KindPoolToken           Kind = "pool_token"
	KindPoolShare           Kind = "pool_share"
	KindToken               Kind = "token"
	KindUser                Kind = "user"
	KindRateProvider        Kind = "rate_provider"
	KindBuffer              Kind = "buffer"
	KindBufferShare         Kind = "buffer_share"
	KindSwap                Kind = "swap"
	KindAddRemove           Kind = "add_remove"
	KindPoolSnapshot        Kind = "pool_snapshot"
	KindHook                Kind = "hook"
	KindHookConfig          Kind = "hook_config"
	KindLiquidityManagement Kind = "liquidity_management"
	KindFactory             Kind = "factory"
	KindWeightedParams      Kind = "weighted_params"
	KindStableParams        Kind = "stable_params"
	KindStableSurgeParams   Kind = "stable_surge_params"
	KindGyro2Params         Kind = "gyro2_params"
	KindGyroEParams         Kind = "gyroe_params"
)

// Entity is a record addressable by kind and deterministic key.
type Entity interface {
	EntityKind() Kind
	EntityID() string
}
