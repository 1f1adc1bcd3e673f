package req

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"

	"github.com/Unagi-Games/evm-whitelabel/pkg/errcodes"
)

var (
	json     = jsoniter.ConfigCompatibleWithStandardLibrary         //nolint:gochecknoglobals // skip
	validate = validator.New(validator.WithRequiredStructEnabled()) //nolint:gochecknoglobals // skip
)

type requestError struct {
	description string
	cause       error
}

func (e *requestError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.description, e.cause)
	}
	return e.description
}

func (e *requestError) Unwrap() error {
	return e.cause
}

func (e *requestError) ErrorKind() errcodes.Kind {
	return errcodes.KindInvalidArgument
}

func (e *requestError) ErrorCode() errcodes.ErrorCode {
	return errcodes.ValidationError
}

func (e *requestError) Description() string {
	return e.description
}

func Read(r *http.Request, dest any) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return &requestError{
			description: "Invalid JSON",
			cause:       fmt.Errorf("json.Decode: %w", err),
		}
	}

	if err := validate.StructCtx(r.Context(), dest); err != nil {
		return &requestError{
			description: err.Error(),
			cause:       fmt.Errorf("validation error: %w", err),
		}
	}

	return nil
}
