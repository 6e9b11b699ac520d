package downloader

import (
	"fmt"

	"github.com/bogem/id3v2"

	"spots/internal/shared"
)

// Tagger writes ID3v2.4 tags to MP3 files
type Tagger struct{}

// NewTagger creates a new Tagger
func NewTagger() *Tagger {
	return &Tagger{}
}

// WriteTags replaces every frame of the file at path with the given
// metadata and cover. Empty fields are left out. Nothing is written unless
// all frames are in place.
func (t *Tagger) WriteTags(path string, track shared.TrackMetadata, cover []byte) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("%w: open tags of %s: %v", shared.ErrTranscodeFailure, path, err)
	}
	defer tag.Close()

	tag.DeleteAllFrames()
	tag.SetVersion(4)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)

	tag.SetTitle(track.Title)
	tag.SetArtist(track.Artist)
	if track.Album != "" {
		tag.SetAlbum(track.Album)
	}
	if track.TrackNumber != "" {
		tag.AddTextFrame("TRCK", id3v2.EncodingUTF8, track.TrackNumber)
	}
	if track.ReleaseYear != "" {
		tag.AddTextFrame("TDRL", id3v2.EncodingUTF8, track.ReleaseYear)
		tag.SetYear(track.ReleaseYear)
	}
	if track.Genre != "" {
		tag.SetGenre(track.Genre)
	}
	if track.Lyrics != "" {
		tag.AddUnsynchronisedLyricsFrame(id3v2.UnsynchronisedLyricsFrame{
			Encoding:          id3v2.EncodingUTF8,
			Language:          "eng",
			ContentDescriptor: "",
			Lyrics:            track.Lyrics,
		})
	}
	if len(cover) > 0 {
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    "image/jpeg",
			PictureType: id3v2.PTFrontCover,
			Description: "Cover",
			Picture:     cover,
		})
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("%w: save tags of %s: %v", shared.ErrTranscodeFailure, path, err)
	}
	return nil
}

// ReadArtistTitle returns the lead artist and title frames of an MP3
func ReadArtistTitle(path string) (artist, title string, err error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true, ParseFrames: []string{"Artist", "Title"}})
	if err != nil {
		return "", "", fmt.Errorf("failed to read tags of %s: %w", path, err)
	}
	defer tag.Close()
	return tag.Artist(), tag.Title(), nil
}
