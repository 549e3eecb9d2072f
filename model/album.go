package model

import "time"

// Album is a normalized album shared across all users' libraries.
type Album struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	SpotifyID   string    `gorm:"size:64;not null;uniqueIndex" json:"spotifyId"`
	AlbumArtURL string    `gorm:"size:512" json:"albumArtUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
