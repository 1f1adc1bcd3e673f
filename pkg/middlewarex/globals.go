package middlewarex

import "github.com/Unagi-Games/evm-whitelabel/pkg/contextx"

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals
