package feed

import (
	"errors"

	"arxivdigest/internal/database"
	"arxivdigest/internal/netutil"
)

var (
	ErrNetwork       = netutil.ErrNetwork
	ErrCertificate   = netutil.ErrCertificate
	ErrMalformedFeed = errors.New("malformed feed")
	ErrNotFound      = database.ErrNotFound
	ErrConfiguration = errors.New("missing configuration")
)
