package value

import (
	"strconv"

	"github.com/Unagi-Games/evm-whitelabel/internal/domain"
	"github.com/Unagi-Games/evm-whitelabel/pkg/errcodes"
)

// TokenID is the unique numeric identifier of an NFT in the collection.
type TokenID int64

func ParseTokenID(s string) (TokenID, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewError(errcodes.KindInvalidArgument, errcodes.InvalidTokenID, "invalid token id: "+s)
	}

	return TokenID(id), nil
}

func NewTokenID(id int64) (TokenID, error) {
	if id <= 0 {
		return 0, domain.NewError(errcodes.KindInvalidArgument, errcodes.InvalidTokenID, "token id must be positive")
	}

	return TokenID(id), nil
}

func (id TokenID) Int64() int64 {
	return int64(id)
}

func (id TokenID) String() string {
	return strconv.FormatInt(int64(id), 10)
}
