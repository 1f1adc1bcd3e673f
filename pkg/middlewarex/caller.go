package middlewarex

import (
	"log/slog"
	"net/http"

	"github.com/Unagi-Games/evm-whitelabel/pkg/contextx"
	"github.com/Unagi-Games/evm-whitelabel/pkg/logx"
)

// HeaderCallerAddress carries the ledger address the request acts on behalf
// of. Signature verification happens at the gateway in front of this service;
// here the header is trusted.
const HeaderCallerAddress = "X-Caller-Address"

// CallerAddress lifts the caller address header into the context and the
// request logger. Requests without the header pass through; handlers that
// need a caller reject on their own.
func CallerAddress(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addr := r.Header.Get(HeaderCallerAddress)
		if addr == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := contextx.WithCaller(r.Context(), contextx.Caller(addr))
		ctx = contextx.WithLogger(ctx, logger(ctx).With(slog.String(logx.FieldCaller, addr)))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
