package library

import (
	"gorm.io/gorm"
)

// TrackFilter is a structured list-view filter: one optional bound per
// attribute, applied as a conjunction. Nil/empty fields are skipped.
type TrackFilter struct {
	ArtistID *int64
	AlbumID  *int64

	BPMMin          *int
	BPMMax          *int
	EnergyMin       *int
	EnergyMax       *int
	PopularityMin   *int
	PopularityMax   *int
	DanceMin        *int
	DanceMax        *int
	AcousticMin     *int
	AcousticMax     *int
	InstrumentalMin *int
	InstrumentalMax *int
	ValenceMin      *int
	ValenceMax      *int
	SpeechMin       *int
	SpeechMax       *int
	LiveMin         *int
	LiveMax         *int
	LoudDBMin       *float64
	LoudDBMax       *float64

	Genre         string // exact membership in the genres list
	ParentGenre   string // exact membership in the parent genres list
	Key           string
	Camelot       string
	TimeSignature string
	Label         string // substring match
	ISRC          string // substring match
}

// Apply narrows a tracks query with every set bound.
func (f TrackFilter) Apply(q *gorm.DB) *gorm.DB {
	if f.ArtistID != nil {
		q = q.Where("id IN (?)",
			q.Session(&gorm.Session{NewDB: true}).
				Table("track_artist").
				Select("track_id").
				Where("artist_id = ?", *f.ArtistID))
	}
	if f.AlbumID != nil {
		q = q.Where("album_id = ?", *f.AlbumID)
	}

	q = intRange(q, "bpm", f.BPMMin, f.BPMMax)
	q = intRange(q, "energy", f.EnergyMin, f.EnergyMax)
	q = intRange(q, "popularity", f.PopularityMin, f.PopularityMax)
	q = intRange(q, "dance", f.DanceMin, f.DanceMax)
	q = intRange(q, "acoustic", f.AcousticMin, f.AcousticMax)
	q = intRange(q, "instrumental", f.InstrumentalMin, f.InstrumentalMax)
	q = intRange(q, "valence", f.ValenceMin, f.ValenceMax)
	q = intRange(q, "speech", f.SpeechMin, f.SpeechMax)
	q = intRange(q, "live", f.LiveMin, f.LiveMax)

	if f.LoudDBMin != nil {
		q = q.Where("loud_db >= ?", *f.LoudDBMin)
	}
	if f.LoudDBMax != nil {
		q = q.Where("loud_db <= ?", *f.LoudDBMax)
	}

	// Genre lists are JSON-encoded text; membership of an exact value is a
	// quoted-substring match, which works on both MySQL and SQLite.
	if f.Genre != "" {
		q = q.Where("genres LIKE ?", `%"`+f.Genre+`"%`)
	}
	if f.ParentGenre != "" {
		q = q.Where("parent_genres LIKE ?", `%"`+f.ParentGenre+`"%`)
	}

	if f.Key != "" {
		q = q.Where("`key` = ?", f.Key)
	}
	if f.Camelot != "" {
		q = q.Where("camelot = ?", f.Camelot)
	}
	if f.TimeSignature != "" {
		q = q.Where("time_signature = ?", f.TimeSignature)
	}
	if f.Label != "" {
		q = q.Where("label LIKE ?", "%"+f.Label+"%")
	}
	if f.ISRC != "" {
		q = q.Where("isrc LIKE ?", "%"+f.ISRC+"%")
	}

	return q
}

func intRange(q *gorm.DB, column string, min, max *int) *gorm.DB {
	if min != nil {
		q = q.Where(column+" >= ?", *min)
	}
	if max != nil {
		q = q.Where(column+" <= ?", *max)
	}
	return q
}
