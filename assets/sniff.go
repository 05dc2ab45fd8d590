package assets

import "bytes"

// signature maps leading magic bytes to a file type. Offset supports formats
// whose marker is not at byte zero (RIFF containers, MP4 brands).
type signature struct {
	offset int
	magic  []byte
	ftype  FileType
}

var signatures = []signature{
	{0, []byte{0x89, 'P', 'N', 'G'}, FileType{"png", "image/png"}},
	{0, []byte{0xFF, 0xD8, 0xFF}, FileType{"jpg", "image/jpeg"}},
	{0, []byte("GIF8"), FileType{"gif", "image/gif"}},
	{8, []byte("WEBP"), FileType{"webp", "image/webp"}},
	{0, []byte("wOFF"), FileType{"woff", "font/woff"}},
	{0, []byte("wOF2"), FileType{"woff2", "font/woff2"}},
	{0, []byte{0x00, 0x01, 0x00, 0x00}, FileType{"ttf", "font/ttf"}},
	{0, []byte("OTTO"), FileType{"otf", "font/otf"}},
	{0, []byte("%PDF"), FileType{"pdf", "application/pdf"}},
	{4, []byte("ftyp"), FileType{"mp4", "video/mp4"}},
	{0, []byte{0x1A, 0x45, 0xDF, 0xA3}, FileType{"webm", "video/webm"}},
	{0, []byte("<svg"), FileType{"svg", "image/svg+xml"}},
	{0, []byte("<?xml"), FileType{"svg", "image/svg+xml"}},
}

// Sniff recovers a file type from magic bytes. It is the fallback when a
// data URI declares the generic octet-stream MIME.
func Sniff(b []byte) (FileType, bool) {
	for _, sig := range signatures {
		end := sig.offset + len(sig.magic)
		if len(b) >= end && bytes.Equal(b[sig.offset:end], sig.magic) {
			return sig.ftype, true
		}
	}
	return FileType{}, false
}
