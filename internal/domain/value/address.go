package value

import (
	"regexp"

	"github.com/Unagi-Games/evm-whitelabel/internal/domain"
	"github.com/Unagi-Games/evm-whitelabel/pkg/errcodes"
)

// Address identifies an account on the asset ledgers.
type Address string

const (
	// ZeroAddress is the "no address" sentinel: an open reservation, an
	// unset receiver.
	ZeroAddress Address = ""

	// BurnAddress is the unrecoverable sink burn shares are sent to.
	BurnAddress Address = "0x000000000000000000000000000000000000dEaD"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ParseAddress validates the textual form of an address. The empty string
// parses to ZeroAddress.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return ZeroAddress, nil
	}

	if !addressPattern.MatchString(s) {
		return ZeroAddress, domain.NewError(errcodes.KindInvalidArgument, errcodes.InvalidAddress, "invalid address: "+s)
	}

	return Address(s), nil
}

func (a Address) String() string {
	return string(a)
}

func (a Address) IsZero() bool {
	return a == ZeroAddress
}
