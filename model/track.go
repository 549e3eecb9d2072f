package model

import "time"

// Track represents an imported track in a user's library.
//
// Artists, Album and AlbumArtURL are denormalized snapshots taken at import
// time for fast display; they do not follow later changes to the normalized
// Artist/Album rows referenced through track_artist and AlbumID.
type Track struct {
	ID        int64  `gorm:"primaryKey" json:"id"`
	UserID    int64  `gorm:"not null;uniqueIndex:uniq_user_spotify" json:"userId"`
	AlbumID   *int64 `gorm:"index" json:"albumId"`
	SpotifyID string `gorm:"size:64;not null;uniqueIndex:uniq_user_spotify" json:"spotifyId"`
	Name      string `gorm:"size:255;not null" json:"name"`

	Artists     StringList `gorm:"type:text" json:"artists"`
	Album       string     `gorm:"size:255" json:"album"`
	AlbumArtURL string     `gorm:"size:512" json:"albumArtUrl"`
	DurationMS  *int       `json:"durationMs"`
	SpotifyURL  string     `gorm:"size:512;not null" json:"spotifyUrl"`
	PreviewURL  *string    `gorm:"size:512" json:"previewUrl"`

	// Audio-analysis attributes, all nullable; filled by CSV reconciliation.
	BPM           *int       `gorm:"column:bpm" json:"bpm"`
	Camelot       string     `gorm:"size:16" json:"camelot"`
	Energy        *int       `json:"energy"`
	Popularity    *int       `json:"popularity"`
	Genres        StringList `gorm:"type:text" json:"genres"`
	ParentGenres  StringList `gorm:"type:text" json:"parentGenres"`
	Dance         *int       `json:"dance"`
	Acoustic      *int       `json:"acoustic"`
	Instrumental  *int       `json:"instrumental"`
	Valence       *int       `json:"valence"`
	Speech        *int       `json:"speech"`
	Live          *int       `json:"live"`
	LoudDB        *float64   `gorm:"column:loud_db;type:decimal(5,2)" json:"loudDb"`
	Key           string     `gorm:"column:key;size:16" json:"key"`
	TimeSignature string     `gorm:"size:16" json:"timeSignature"`
	Label         string     `gorm:"size:255" json:"label"`
	ISRC          string     `gorm:"column:isrc;size:32" json:"isrc"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TrackArtist links a track to a normalized artist.
type TrackArtist struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	TrackID   int64     `gorm:"not null;uniqueIndex:uniq_track_artist" json:"trackId"`
	ArtistID  int64     `gorm:"not null;uniqueIndex:uniq_track_artist" json:"artistId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName keeps the singular join-table name.
func (TrackArtist) TableName() string { return "track_artist" }

// RelatedTrack is one directed row of the symmetric related-tracks relation.
// The application always writes and removes rows in pairs (A->B and B->A);
// a single direction never exists on its own.
type RelatedTrack struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	TrackID        int64     `gorm:"not null;uniqueIndex:uniq_related_pair" json:"trackId"`
	RelatedTrackID int64     `gorm:"not null;uniqueIndex:uniq_related_pair;index" json:"relatedTrackId"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
