package mathx

import "errors"

// ErrDivByZero and ErrOverflow surface malformed inputs to mathx's pure
// functions. They never reach a caller in normal operation — every divisor
// here is a validated protocol constant or a positive supply total — but a
// pure math package fails loudly rather than silently producing garbage.
var (
	ErrDivByZero = errors.New("mathx: division by zero")
	ErrOverflow  = errors.New("mathx: result overflows 256 bits")
)
