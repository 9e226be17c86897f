package models

import "errors"

var (
	// ErrLocationUnavailable is returned by location providers when permission
	// was denied or the position could not be determined.
	ErrLocationUnavailable = errors.New("location unavailable")

	// ErrFetchFailed is wrapped by every route fetcher failure, whether the
	// cause was the network, an HTTP status or an undecodable body.
	ErrFetchFailed = errors.New("fetch failed")
)
