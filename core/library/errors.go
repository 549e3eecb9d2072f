package library

import "errors"

var (
	// ErrTrackNotFound means the track does not exist or is not owned by
	// the requesting user.
	ErrTrackNotFound = errors.New("track not found")

	// ErrAlreadyImported means the user's library already holds a track
	// with the same Spotify id.
	ErrAlreadyImported = errors.New("track already in library")

	// ErrSelfRelation means a track was related to itself.
	ErrSelfRelation = errors.New("cannot relate a track to itself")

	// ErrDuplicateRelation means the two tracks are already related, in
	// either direction.
	ErrDuplicateRelation = errors.New("tracks are already related")
)
