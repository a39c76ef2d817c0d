package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccountRole distinguishes ordinary callers from governance signers.
// This is purely the ambient auth layer described in SPEC_FULL.md — the
// settlement core itself only ever sees an opaque Address string.
type AccountRole string

const (
	RoleUser   AccountRole = "user"
	RoleSigner AccountRole = "signer"
)

// Account is the minimal auth identity behind an Address: a login the API
// can authenticate with a bearer token, nothing more. There is no wallet,
// no balance here — ledger balances live entirely in LedgerEntry.
type Account struct {
	ID           uuid.UUID   `db:"id" json:"id"`
	Address      string      `db:"address" json:"address"`
	Email        string      `db:"email" json:"email"`
	PasswordHash string      `db:"password_hash" json:"-"`
	Role         AccountRole `db:"role" json:"role"`
	Active       bool        `db:"active" json:"active"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
}

// IsSigner reports whether this account can participate in governance.
func (a *Account) IsSigner() bool { return a.Role == RoleSigner }

// PublicProfile strips sensitive fields for API responses.
type PublicProfile struct {
	Address string      `json:"address"`
	Role    AccountRole `json:"role"`
}

// ToPublicProfile projects an Account to its public view.
func (a *Account) ToPublicProfile() PublicProfile {
	return PublicProfile{Address: a.Address, Role: a.Role}
}
