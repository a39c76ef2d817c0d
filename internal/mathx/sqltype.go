package mathx

import (
	"database/sql/driver"
	"fmt"

	"github.com/holiman/uint256"
)

// U256 wraps *uint256.Int so it can cross the database/sql and
// encoding/json boundaries as an exact decimal string — the same "keep full
// precision as text" approach the teacher uses for its FinanceReport sums,
// applied here to every monetary and share-count field instead of only the
// reporting layer.
type U256 struct {
	Int *uint256.Int
}

// NewU256 wraps an existing *uint256.Int.
func NewU256(v *uint256.Int) U256 {
	if v == nil {
		v = Zero()
	}
	return U256{Int: v}
}

// ZeroU256 returns a zero-valued U256.
func ZeroU256() U256 { return U256{Int: Zero()} }

// Scan implements database/sql.Scanner, reading a NUMERIC/TEXT column as a
// base-10 string.
func (u *U256) Scan(src interface{}) error {
	if src == nil {
		u.Int = Zero()
		return nil
	}
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("mathx.U256.Scan: unsupported type %T", src)
	}
	z, err := uint256.FromDecimal(s)
	if err != nil {
		return fmt.Errorf("mathx.U256.Scan: %w", err)
	}
	u.Int = z
	return nil
}

// Value implements database/sql/driver.Valuer.
func (u U256) Value() (driver.Value, error) {
	if u.Int == nil {
		return "0", nil
	}
	return u.Int.Dec(), nil
}

// MarshalJSON renders the value as a quoted base-10 string so large values
// survive round-tripping through JSON number precision limits.
func (u U256) MarshalJSON() ([]byte, error) {
	if u.Int == nil {
		return []byte(`"0"`), nil
	}
	return []byte(`"` + u.Int.Dec() + `"`), nil
}

// UnmarshalJSON parses a quoted (or bare) base-10 string.
func (u *U256) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "null" {
		u.Int = Zero()
		return nil
	}
	z, err := uint256.FromDecimal(s)
	if err != nil {
		return fmt.Errorf("mathx.U256.UnmarshalJSON: %w", err)
	}
	u.Int = z
	return nil
}

// String implements fmt.Stringer.
func (u U256) String() string {
	if u.Int == nil {
		return "0"
	}
	return u.Int.Dec()
}
