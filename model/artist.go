package model

import "time"

// Artist is a normalized artist shared across all users' libraries.
type Artist struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	SpotifyID string    `gorm:"size:64;not null;uniqueIndex" json:"spotifyId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
