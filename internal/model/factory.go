package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Factory is a pool factory contract.
type Factory struct {
	ID      common.Address `json:"id"`
	Type    string         `json:"type"`
	Version int            `json:"version"`
}

func (f *Factory) EntityKind() Kind { return KindFactory }
func (f *Factory) EntityID() string { return AddressKey(f.ID) }

type WeightedParams struct {
	ID      common.Address    `json:"id"`
	Weights []decimal.Decimal `json:"weights"`
}

func (p *WeightedParams) EntityKind() Kind { return KindWeightedParams }
func (p *WeightedParams) EntityID() string { return AddressKey(p.ID) }

type StableParams struct {
	ID  common.Address `json:"id"`
	Amp *big.Int       `json:"amp"`
}

func (p *StableParams) EntityKind() Kind { return KindStableParams }
func (p *StableParams) EntityID() string { return AddressKey(p.ID) }

type StableSurgeParams struct {
	ID                       common.Address  `json:"id"`
	Amp                      *big.Int        `json:"amp"`
	MaxSurgeFeePercentage    decimal.Decimal `json:"max_surge_fee_percentage"`
	SurgeThresholdPercentage decimal.Decimal `json:"surge_threshold_percentage"`
}

func (p *StableSurgeParams) EntityKind() Kind { return KindStableSurgeParams }
func (p *StableSurgeParams) EntityID() string { return AddressKey(p.ID) }

// Gyro2Params are the square roots of a 2-CLP pool's price bounds.
type Gyro2Params struct {
	ID        common.Address  `json:"id"`
	SqrtAlpha decimal.Decimal `json:"sqrt_alpha"`
	SqrtBeta  decimal.Decimal `json:"sqrt_beta"`
}

func (p *Gyro2Params) EntityKind() Kind { return KindGyro2Params }
func (p *Gyro2Params) EntityID() string { return AddressKey(p.ID) }

// GyroEParams describe an elliptic CLP pool. The derived values carry 38
// decimals on chain, the rest 18.
type GyroEParams struct {
	ID        common.Address  `json:"id"`
	Alpha     decimal.Decimal `json:"alpha"`
	Beta      decimal.Decimal `json:"beta"`
	C         decimal.Decimal `json:"c"`
	S         decimal.Decimal `json:"s"`
	Lambda    decimal.Decimal `json:"lambda"`
	TauAlphaX decimal.Decimal `json:"tau_alpha_x"`
	TauAlphaY decimal.Decimal `json:"tau_alpha_y"`
	TauBetaX  decimal.Decimal `json:"tau_beta_x"`
	TauBetaY  decimal.Decimal `json:"tau_beta_y"`
	U         decimal.Decimal `json:"u"`
	V         decimal.Decimal `json:"v"`
	W         decimal.Decimal `json:"w"`
	Z         decimal.Decimal `json:"z"`
	DSq       decimal.Decimal `json:"d_sq"`
}

func (p *GyroEParams) EntityKind() Kind { return KindGyroEParams }
func (p *GyroEParams) EntityID() string { return AddressKey(p.ID) }
