// Package tagging reads the tags already present in decrypted streams and
// embeds cover art into written MP3 and FLAC files.
//
// MP3 files carry the cover as an ID3v2 APIC frame. FLAC files carry it as
// a PICTURE metadata block, with titles stored in the Vorbis comment block.
// Other containers are left untouched and report ErrUnsupported.
package tagging
