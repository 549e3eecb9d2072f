// Package csvimport bulk-updates audio-analysis attributes of existing
// library tracks from an uploaded CSV export, matched by Spotify id.
// Reconciliation only updates; unknown ids are counted, never created.
package csvimport

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"trackcrate/logger"
	"trackcrate/model"

	"gorm.io/gorm"
)

// Fixed positional column layout of the source export. The mapping is by
// index, not header name; data rows need at least minColumns cells.
const (
	colBPM           = 3
	colCamelot       = 4
	colEnergy        = 5
	colPopularity    = 8
	colGenres        = 9
	colParentGenres  = 10
	colDance         = 13
	colAcoustic      = 14
	colInstrumental  = 15
	colValence       = 16
	colSpeech        = 17
	colLive          = 18
	colLoudDB        = 19
	colKey           = 20
	colTimeSignature = 21
	colSpotifyID     = 22
	colLabel         = 23
	colISRC          = 24

	minColumns = 25
)

// Report summarizes one reconciliation batch.
type Report struct {
	Updated  int `json:"updated"`
	NotFound int `json:"notFound"`
}

// Reconciler applies CSV batches to a user's library.
type Reconciler struct {
	db *gorm.DB
}

// NewReconciler creates a reconciler on the given database handle.
func NewReconciler(db *gorm.DB) *Reconciler {
	return &Reconciler{db: db}
}

// row holds the parsed attributes of one usable CSV line.
type row struct {
	spotifyID     string
	bpm           *int
	camelot       string
	energy        *int
	popularity    *int
	genres        model.StringList
	parentGenres  model.StringList
	dance         *int
	acoustic      *int
	instrumental  *int
	valence       *int
	speech        *int
	live          *int
	loudDB        *float64
	key           string
	timeSignature string
	label         string
	isrc          string
}

// Reconcile parses the CSV stream and applies every usable row inside one
// transaction: either all row updates commit or none do. Rows whose Spotify
// id is unknown to the user's library are counted as not-found; malformed
// rows are skipped without failing the batch.
func (r *Reconciler) Reconcile(ctx context.Context, userID int64, src io.Reader) (Report, error) {
	rows, err := parse(src)
	if err != nil {
		return Report{}, err
	}

	var report Report
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, data := range rows {
			var track model.Track
			err := tx.Where("user_id = ? AND spotify_id = ?", userID, data.spotifyID).
				First(&track).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				report.NotFound++
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to look up track %q: %w", data.spotifyID, err)
			}

			// Overwrite every mapped attribute; a blank source cell
			// clears a previously-set value.
			track.BPM = data.bpm
			track.Camelot = data.camelot
			track.Energy = data.energy
			track.Popularity = data.popularity
			track.Genres = data.genres
			track.ParentGenres = data.parentGenres
			track.Dance = data.dance
			track.Acoustic = data.acoustic
			track.Instrumental = data.instrumental
			track.Valence = data.valence
			track.Speech = data.speech
			track.Live = data.live
			track.LoudDB = data.loudDB
			track.Key = data.key
			track.TimeSignature = data.timeSignature
			track.Label = data.label
			track.ISRC = data.isrc

			if err := tx.Save(&track).Error; err != nil {
				return fmt.Errorf("failed to update track %q: %w", data.spotifyID, err)
			}
			report.Updated++
		}
		return nil
	})
	if err != nil {
		return Report{}, err
	}

	logger.Info("csv batch reconciled",
		logger.Int64("userId", userID),
		logger.Int("updated", report.Updated),
		logger.Int("notFound", report.NotFound))
	return report, nil
}

// parse reads the stream, drops the header, and returns the usable rows.
// Skipped outright: empty rows, rows whose first cell starts with '#',
// rows shorter than minColumns, and rows without a Spotify id.
func parse(src io.Reader) ([]row, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	// Header row.
	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	var rows []row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}

		if len(record) == 0 {
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(record[0]), "#") {
			continue
		}
		if len(record) < minColumns {
			continue
		}

		spotifyID := strings.TrimSpace(record[colSpotifyID])
		if spotifyID == "" {
			continue
		}

		rows = append(rows, row{
			spotifyID:     spotifyID,
			bpm:           parseInt(record[colBPM]),
			camelot:       strings.TrimSpace(record[colCamelot]),
			energy:        parseInt(record[colEnergy]),
			popularity:    parseInt(record[colPopularity]),
			genres:        parseList(record[colGenres]),
			parentGenres:  parseList(record[colParentGenres]),
			dance:         parseInt(record[colDance]),
			acoustic:      parseInt(record[colAcoustic]),
			instrumental:  parseInt(record[colInstrumental]),
			valence:       parseInt(record[colValence]),
			speech:        parseInt(record[colSpeech]),
			live:          parseInt(record[colLive]),
			loudDB:        parseFloat(record[colLoudDB]),
			key:           strings.TrimSpace(record[colKey]),
			timeSignature: strings.TrimSpace(record[colTimeSignature]),
			label:         strings.TrimSpace(record[colLabel]),
			isrc:          strings.TrimSpace(record[colISRC]),
		})
	}
	return rows, nil
}

// parseInt returns nil for blank or non-numeric cells. Decimal-looking
// values are truncated toward zero.
func parseInt(value string) *int {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if n, err := strconv.Atoi(value); err == nil {
		return &n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		n := int(f)
		return &n
	}
	return nil
}

// parseFloat returns nil for blank or non-numeric cells.
func parseFloat(value string) *float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return &f
	}
	return nil
}

// parseList splits a comma-separated cell, trimming entries and dropping
// empties; a blank or all-empty cell yields nil (SQL NULL).
func parseList(value string) model.StringList {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	var items model.StringList
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
