package errcodes

// ErrorCode is a stable, machine-readable identifier carried by every
// application error all the way to the REST response.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Kind classifies an error for transport mapping.
type Kind uint8

const (
	KindInternal Kind = iota
	KindInvalidArgument
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindConflict
	KindUnprocessable
)

// Classified is implemented by errors that carry a code and a kind.
type Classified interface {
	ErrorKind() Kind
	ErrorCode() ErrorCode
	Description() string
}

const (
	InternalServerError ErrorCode = "InternalServerError"
	TimeoutExceeded     ErrorCode = "TimeoutExceeded"
	Forbidden           ErrorCode = "Forbidden"
	ValidationError     ErrorCode = "ValidationError"
	NotFound            ErrorCode = "NotFound"

	// Settlement core taxonomy.
	AuthorizationError    ErrorCode = "AuthorizationError"    // caller lacks ownership/operator/role capability
	StateConflictError    ErrorCode = "StateConflictError"    // operation invalid for current record state
	PreconditionError     ErrorCode = "PreconditionError"     // malformed or out-of-range input
	AuthorizationGapError ErrorCode = "AuthorizationGapError" // external allowance/approval insufficient
	PriceMismatchError    ErrorCode = "PriceMismatchError"    // expected price diverged from stored price

	SaleNotFound   ErrorCode = "SaleNotFound"
	EscrowNotFound ErrorCode = "EscrowNotFound"
	InvalidAddress ErrorCode = "InvalidAddress"
	InvalidTokenID ErrorCode = "InvalidTokenID"
	LedgerError    ErrorCode = "LedgerError" // external asset ledger rejected a call
)
