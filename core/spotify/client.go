// Package spotify wraps the Spotify Web API behind the small contract the
// library needs: given a track link, return a canonical track description.
//
// Credentials come from SPOTIFY_CLIENT_ID / SPOTIFY_CLIENT_SECRET and are
// exchanged with the client-credentials grant; no user authorization is
// involved.
package spotify

import (
	"context"
	"fmt"
	"regexp"

	"trackcrate/logger"

	spotifyapi "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

var (
	trackURLPattern = regexp.MustCompile(`track/([a-zA-Z0-9]+)`)
	trackURIPattern = regexp.MustCompile(`spotify:track:([a-zA-Z0-9]+)`)
	refPattern      = regexp.MustCompile(`(?i)^(https?://)?(open\.spotify\.com/track/|spotify:track:)[a-zA-Z0-9]+`)
)

// ValidTrackRef reports whether ref looks like a Spotify track link or URI.
// Used by request validation before any network call is made.
func ValidTrackRef(ref string) bool {
	return refPattern.MatchString(ref)
}

// ArtistData is the normalized artist part of a track description.
type ArtistData struct {
	Name      string `json:"name"`
	SpotifyID string `json:"spotifyId"`
}

// AlbumData is the normalized album part of a track description.
type AlbumData struct {
	Name        string `json:"name"`
	SpotifyID   string `json:"spotifyId"`
	AlbumArtURL string `json:"albumArtUrl"`
}

// TrackData is the canonical track description returned by the adapter.
type TrackData struct {
	SpotifyID   string       `json:"spotifyId"`
	Name        string       `json:"name"`
	ArtistNames []string     `json:"artists"`
	ArtistData  []ArtistData `json:"artistData"`
	AlbumName   string       `json:"album"`
	AlbumData   *AlbumData   `json:"albumData"`
	AlbumArtURL string       `json:"albumArtUrl"`
	DurationMS  int          `json:"durationMs"`
	SpotifyURL  string       `json:"spotifyUrl"`
	PreviewURL  *string      `json:"previewUrl"`
}

// Client fetches track descriptions from the Spotify Web API.
type Client struct {
	creds *clientcredentials.Config
}

// NewClient creates a client for the given application credentials.
func NewClient(clientID, clientSecret string) *Client {
	return &Client{
		creds: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     spotifyauth.TokenURL,
		},
	}
}

// extractTrackID pulls the track id out of a Spotify link or URI.
// Recognized forms:
//
//	https://open.spotify.com/track/4iV5W9uYEdYUVa79Axb7Rh
//	https://open.spotify.com/track/4iV5W9uYEdYUVa79Axb7Rh?si=...
//	spotify:track:4iV5W9uYEdYUVa79Axb7Rh
func extractTrackID(ref string) (string, error) {
	if m := trackURLPattern.FindStringSubmatch(ref); m != nil {
		return m[1], nil
	}
	if m := trackURIPattern.FindStringSubmatch(ref); m != nil {
		return m[1], nil
	}
	return "", ErrInvalidTrackURL
}

// GetTrack resolves a track reference to its canonical description.
// Single attempt, no retries; callers treat failures as fail-fast.
func (c *Client) GetTrack(ctx context.Context, ref string) (*TrackData, error) {
	trackID, err := extractTrackID(ref)
	if err != nil {
		return nil, err
	}

	token, err := c.creds.Token(ctx)
	if err != nil {
		logger.Error("spotify token exchange failed", logger.ErrorField(err))
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	api := spotifyapi.New(spotifyauth.New().Client(ctx, token))
	track, err := api.GetTrack(ctx, spotifyapi.ID(trackID))
	if err != nil {
		logger.Error("spotify track fetch failed",
			logger.String("trackId", trackID),
			logger.ErrorField(err))
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	return mapTrack(ref, track), nil
}

// mapTrack converts an API track into the adapter's contract shape.
func mapTrack(ref string, t *spotifyapi.FullTrack) *TrackData {
	data := &TrackData{
		SpotifyID:  string(t.ID),
		Name:       t.Name,
		DurationMS: int(t.Duration),
		SpotifyURL: ref,
	}

	for _, artist := range t.Artists {
		data.ArtistNames = append(data.ArtistNames, artist.Name)
		data.ArtistData = append(data.ArtistData, ArtistData{
			Name:      artist.Name,
			SpotifyID: string(artist.ID),
		})
	}

	if url, ok := t.ExternalURLs["spotify"]; ok && url != "" {
		data.SpotifyURL = url
	}
	if t.PreviewURL != "" {
		preview := t.PreviewURL
		data.PreviewURL = &preview
	}

	artURL := albumArtURL(t.Album.Images)
	data.AlbumArtURL = artURL
	if t.Album.Name != "" {
		data.AlbumName = t.Album.Name
		data.AlbumData = &AlbumData{
			Name:        t.Album.Name,
			SpotifyID:   string(t.Album.ID),
			AlbumArtURL: artURL,
		}
	}

	return data
}

// albumArtURL picks the medium-sized image when available, falling back to
// the first one.
func albumArtURL(images []spotifyapi.Image) string {
	if len(images) == 0 {
		return ""
	}
	if len(images) > 1 {
		return images[1].URL
	}
	return images[0].URL
}
