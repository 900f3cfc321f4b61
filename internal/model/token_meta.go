package model

import "github.com/ethereum/go-ethereum/common"

// TokenMeta captures ERC20 metadata.
type TokenMeta struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
}

// Token is the stored ERC20 reference record.
type Token struct {
	ID       common.Address `json:"id"`
	Name     string         `json:"name"`
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`
}

func (t *Token) EntityKind() Kind { return KindToken }
func (t *Token) EntityID() string { return AddressKey(t.ID) }

// User is any account seen as a swapper, liquidity provider or holder.
type User struct {
	ID common.Address `json:"id"`
}

func (u *User) EntityKind() Kind { return KindUser }
func (u *User) EntityID() string { return AddressKey(u.ID) }
