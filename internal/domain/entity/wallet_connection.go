package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProviderKind is the custody/signing provider behind a wallet connection.
type ProviderKind string

const (
	ProviderBrowserExtension ProviderKind = "browser-extension"
	ProviderRemoteSigner     ProviderKind = "remote-signer"
	ProviderHardware         ProviderKind = "hardware"
	ProviderCustodial        ProviderKind = "custodial"
)

// SigningPath distinguishes local from remote (backend) signing.
type SigningPath string

const (
	SigningPathLocal  SigningPath = "local"
	SigningPathRemote SigningPath = "remote"
)

// Valid reports whether k is a known provider kind.
func (k ProviderKind) Valid() bool {
	switch k {
	case ProviderBrowserExtension, ProviderRemoteSigner, ProviderHardware, ProviderCustodial:
		return true
	}
	return false
}

// SigningPath returns where transactions for this provider are signed.
func (k ProviderKind) SigningPath() SigningPath {
	switch k {
	case ProviderBrowserExtension, ProviderHardware:
		return SigningPathLocal
	default:
		return SigningPathRemote
	}
}

// TradeLimit caps traded value per period.
type TradeLimit struct {
	Amount decimal.Decimal `json:"amount"`
	Period string          `json:"period"`
}

// Permissions is the permission set granted to a connection.
type Permissions struct {
	CanView          bool        `json:"canView"`
	CanTrade         bool        `json:"canTrade"`
	TradeLimit       *TradeLimit `json:"tradeLimit,omitempty"`
	AllowedContracts []string    `json:"allowedContracts,omitempty"`
}

// WalletConnection is one user-authorized binding of a wallet to the platform.
type WalletConnection struct {
	ID           string       `json:"id"`
	ProviderKind ProviderKind `json:"provider"`
	ChainAddress string       `json:"address"`
	DisplayName  string       `json:"name"`
	Network      Network      `json:"network"`
	IsActive     bool         `json:"isActive"`
	Permissions  Permissions  `json:"permissions"`
	CreatedAt    time.Time    `json:"createdAt"`
	LastUsedAt   *time.Time   `json:"lastUsedAt,omitempty"`
}

// ConnectionRequest is the registration payload sent to the backend after a handshake.
type ConnectionRequest struct {
	ProviderKind ProviderKind `json:"provider"`
	ChainAddress string       `json:"address"`
	DisplayName  string       `json:"name"`
	Network      Network      `json:"network"`
	Permissions  Permissions  `json:"permissions"`
}

// WalletConnectionUpdate carries the fields of a partial update; nil fields are unchanged.
type WalletConnectionUpdate struct {
	DisplayName *string      `json:"name,omitempty"`
	IsActive    *bool        `json:"isActive,omitempty"`
	Permissions *Permissions `json:"permissions,omitempty"`
}
