package harvest

import "errors"

var (
	// ErrDownloadFailure is reported for a resource that could not be
	// fetched or saved. It never stops other downloads.
	ErrDownloadFailure = errors.New("download failed")

	// ErrInvalidProxyAddress is returned when the SOCKS5 proxy address is
	// not in "host:port" form.
	ErrInvalidProxyAddress = errors.New("invalid proxy address: must be host:port")

	// ErrNoResourceBase is returned when relative paths cannot be resolved
	// because no absolute resource base URL is configured.
	ErrNoResourceBase = errors.New("resource base URL must be absolute")
)
