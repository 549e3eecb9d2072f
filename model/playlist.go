package model

import "time"

// Playlist is an ordered, user-owned collection of tracks.
type Playlist struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	UserID      int64     `gorm:"not null;index" json:"userId"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"size:1024" json:"description"`
	IsPublic    bool      `gorm:"not null;default:false" json:"isPublic"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PlaylistTrack is a playlist membership row. Within one playlist the
// positions always form a dense sequence 1..N.
type PlaylistTrack struct {
	PlaylistID int64     `gorm:"primaryKey" json:"playlistId"`
	TrackID    int64     `gorm:"primaryKey" json:"trackId"`
	Position   int       `gorm:"not null" json:"position"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TableName keeps the singular join-table name.
func (PlaylistTrack) TableName() string { return "playlist_track" }
