package spotify

import "errors"

var (
	// ErrInvalidTrackURL means the reference string is not a recognized
	// Spotify track link or URI.
	ErrInvalidTrackURL = errors.New("invalid spotify track url")

	// ErrAuthFailed means the client-credentials token exchange failed.
	ErrAuthFailed = errors.New("spotify authentication failed")

	// ErrFetchFailed means the track lookup failed or the track is absent.
	ErrFetchFailed = errors.New("spotify track fetch failed")
)
