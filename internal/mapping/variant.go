package mapping

import (
	"fmt"
	"strings"
)

// FeeModel selects how protocol swap fees are derived.
type FeeModel string

const (
	// FeeModelAggregate uses the swap fee amounts reported by the vault and
	// refreshes pending yield fees from chain state.
	FeeModelAggregate FeeModel = "aggregate"
	// FeeModelEstimated derives fees from the pool's static swap fee.
	FeeModelEstimated FeeModel = "estimated"
)

// HolderPolicy decides which share transfers move a pool's holder count.
type HolderPolicy string

const (
	HolderCountAll HolderPolicy = "count-all"
	// HolderExcludeVault ignores the vault as a holder and drops the
	// pre-minted share transfers (mint to the pool, pool to vault).
	HolderExcludeVault HolderPolicy = "exclude-vault"
)

// Variant is the handler configuration of one deployment generation.
type Variant struct {
	Name             string
	Version          int
	HasRateProviders bool
	HasHooks         bool
	HasBuffers       bool
	FeeModel         FeeModel
	HolderPolicy     HolderPolicy
}

var (
	VariantV3 = Variant{
		Name:             "v3",
		Version:          3,
		HasRateProviders: true,
		HasHooks:         true,
		HasBuffers:       true,
		FeeModel:         FeeModelAggregate,
		HolderPolicy:     HolderCountAll,
	}
	VariantV3Lite = Variant{
		Name:             "v3-lite",
		Version:          3,
		HasRateProviders: true,
		FeeModel:         FeeModelAggregate,
		HolderPolicy:     HolderCountAll,
	}
	VariantV2 = Variant{
		Name:             "v2",
		Version:          2,
		HasRateProviders: true,
		FeeModel:         FeeModelEstimated,
		HolderPolicy:     HolderExcludeVault,
	}
)

// ParseVariant resolves a preset by name.
func ParseVariant(name string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", VariantV3.Name:
		return VariantV3, nil
	case VariantV3Lite.Name:
		return VariantV3Lite, nil
	case VariantV2.Name:
		return VariantV2, nil
	default:
		return Variant{}, fmt.Errorf("unknown variant %q", name)
	}
}
