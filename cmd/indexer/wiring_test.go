package main

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultScope/internal/config"
	"vaultScope/internal/mapping"
)

func TestParseDeployment(t *testing.T) {
	d, err := parseDeployment(config.Deployment{
		Variant:       "v3",
		Vault:         "0xbA1333333333a1BA1108E8412f11850A5C319bA9",
		FeeController: "0xa731C23D7c95436Baaae9D52782f966E1ed07cc8",
		Factories:     []string{"0x201efd508c8DfE9DE1a13c2452863A78CB2a86Cc=weighted:1"},
		SurgeHooks:    []string{"0xBDbADc891BB95DEE80eBC491699228EF0f7EEff1", "0xbA1333333333a1BA1108E8412f11850A5C319bA9"},
	})
	require.NoError(t, err)
	assert.Equal(t, mapping.VariantV3, d.variant)

	// The vault listed again as a hook is watched once.
	addresses := d.addresses()
	assert.Len(t, addresses, 4)
	assert.Equal(t, common.HexToAddress("0xbA1333333333a1BA1108E8412f11850A5C319bA9"), addresses[0])
	assert.Equal(t, common.Address{}, d.feesCollector)

	cfg := d.handlerConfig()
	assert.Equal(t, mapping.FactoryInfo{Type: mapping.FactoryTypeWeighted, Version: 1},
		cfg.Factories[common.HexToAddress("0x201efd508c8DfE9DE1a13c2452863A78CB2a86Cc")])
}

func TestParseDeploymentErrors(t *testing.T) {
	_, err := parseDeployment(config.Deployment{})
	assert.Error(t, err)

	_, err = parseDeployment(config.Deployment{Vault: "not-an-address"})
	assert.Error(t, err)

	_, err = parseDeployment(config.Deployment{Variant: "v1", Vault: "0xbA1333333333a1BA1108E8412f11850A5C319bA9"})
	assert.Error(t, err)
}
