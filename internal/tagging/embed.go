package tagging

import (
	"fmt"

	"github.com/bogem/id3v2/v2"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	flac "github.com/go-flac/go-flac"

	"ncmdump/internal/artwork"
)

const coverDescription = "Front cover"

// Embed writes cover art into the file at path and fills title, artist and
// album when the file has none. format is the output extension.
func Embed(path, format string, cover artwork.Cover, tags Tags) error {
	switch format {
	case "mp3":
		return embedID3(path, cover, tags)
	case "flac":
		return embedFLAC(path, cover, tags)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupported, format)
	}
}

func embedID3(path string, cover artwork.Cover, tags Tags) error {
	file, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open id3 tag: %w", err)
	}
	defer file.Close()

	file.SetDefaultEncoding(id3v2.EncodingUTF8)
	if len(cover.Data) > 0 {
		file.DeleteFrames(file.CommonID("Attached picture"))
		file.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingISO,
			MimeType:    cover.MIME,
			PictureType: id3v2.PTFrontCover,
			Description: coverDescription,
			Picture:     cover.Data,
		})
	}
	if file.Title() == "" && tags.Title != "" {
		file.SetTitle(tags.Title)
	}
	if file.Artist() == "" && tags.Artist != "" {
		file.SetArtist(tags.Artist)
	}
	if file.Album() == "" && tags.Album != "" {
		file.SetAlbum(tags.Album)
	}
	if err := file.Save(); err != nil {
		return fmt.Errorf("save id3 tag: %w", err)
	}
	return nil
}

func embedFLAC(path string, cover artwork.Cover, tags Tags) error {
	file, err := flac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parse flac: %w", err)
	}

	if len(cover.Data) > 0 {
		kept := file.Meta[:0]
		for _, block := range file.Meta {
			if block.Type != flac.Picture {
				kept = append(kept, block)
			}
		}
		file.Meta = kept

		picture := &flacpicture.MetadataBlockPicture{
			PictureType: flacpicture.PictureTypeFrontCover,
			MIME:        cover.MIME,
			Description: coverDescription,
			Width:       uint32(cover.Width),
			Height:      uint32(cover.Height),
			ColorDepth:  24,
			ImageData:   cover.Data,
		}
		block := picture.Marshal()
		file.Meta = append(file.Meta, &block)
	}

	var commentBlock *flac.MetaDataBlock
	for _, block := range file.Meta {
		if block.Type == flac.VorbisComment {
			commentBlock = block
			break
		}
	}
	comments := flacvorbis.New()
	if commentBlock != nil {
		if comments, err = flacvorbis.ParseFromMetaDataBlock(*commentBlock); err != nil {
			return fmt.Errorf("parse vorbis comments: %w", err)
		}
	}
	for _, field := range []struct {
		name  string
		value string
	}{
		{flacvorbis.FIELD_TITLE, tags.Title},
		{flacvorbis.FIELD_ARTIST, tags.Artist},
		{flacvorbis.FIELD_ALBUM, tags.Album},
	} {
		if field.value == "" {
			continue
		}
		existing, err := comments.Get(field.name)
		if err != nil {
			return fmt.Errorf("read vorbis comment %s: %w", field.name, err)
		}
		if len(existing) == 0 {
			if err := comments.Add(field.name, field.value); err != nil {
				return fmt.Errorf("add vorbis comment %s: %w", field.name, err)
			}
		}
	}
	marshaled := comments.Marshal()
	if commentBlock != nil {
		*commentBlock = marshaled
	} else {
		file.Meta = append(file.Meta, &marshaled)
	}

	if err := file.Save(path); err != nil {
		return fmt.Errorf("save flac: %w", err)
	}
	return nil
}
