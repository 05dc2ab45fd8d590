package assets

import (
	"encoding/base64"
	"net/url"
	"strings"
)

// allowedExtensions is the opt-in list for stylesheet-embedded local assets.
// Anything else referenced from CSS by path is skipped silently: binary
// assets are admitted by extension, not by content sniffing.
var allowedExtensions = map[string]FileType{
	"ttf":   {"ttf", "font/ttf"},
	"otf":   {"otf", "font/otf"},
	"woff":  {"woff", "font/woff"},
	"woff2": {"woff2", "font/woff2"},
	"svg":   {"svg", "image/svg+xml"},
}

// mediaExtensions covers document-embedded media elements (img, video,
// audio). Wider than the stylesheet list: media references are authored
// deliberately, CSS ones arrive in bulk from themes.
var mediaExtensions = map[string]FileType{
	"png":  {"png", "image/png"},
	"jpg":  {"jpg", "image/jpeg"},
	"jpeg": {"jpg", "image/jpeg"},
	"gif":  {"gif", "image/gif"},
	"webp": {"webp", "image/webp"},
	"svg":  {"svg", "image/svg+xml"},
	"mp4":  {"mp4", "video/mp4"},
	"webm": {"webm", "video/webm"},
	"mp3":  {"mp3", "audio/mpeg"},
	"ogg":  {"ogg", "audio/ogg"},
	"wav":  {"wav", "audio/wav"},
	"pdf":  {"pdf", "application/pdf"},
}

const octetStream = "application/octet-stream"

// Kind says where an asset reference points.
type Kind int

const (
	// KindRemote is an absolute http(s) locator — already external, never
	// re-uploaded, left untouched in the output.
	KindRemote Kind = iota
	// KindData is an inline data: URI.
	KindData
	// KindLocal is a relative or vault-internal path.
	KindLocal
)

// KindOf reports where a locator points.
func KindOf(locator string) Kind {
	switch {
	case strings.HasPrefix(locator, "data:"):
		return KindData
	case strings.HasPrefix(locator, "http://"), strings.HasPrefix(locator, "https://"):
		return KindRemote
	default:
		return KindLocal
	}
}

// ClassifyLocal classifies a relative locator by its trailing name.extension.
// Only allow-listed extensions are accepted; everything else reports false
// and the asset is excluded from the publish set.
func ClassifyLocal(locator string) (FileType, bool) {
	// Strip query/fragment noise before looking at the extension.
	if i := strings.IndexAny(locator, "?#"); i >= 0 {
		locator = locator[:i]
	}
	name := locator[strings.LastIndexByte(locator, '/')+1:]
	dot := strings.LastIndexByte(name, '.')
	if dot <= 0 || dot == len(name)-1 {
		return FileType{}, false
	}
	ft, ok := allowedExtensions[strings.ToLower(name[dot+1:])]
	return ft, ok
}

// ClassifyMedia classifies a document media reference by extension, falling
// back to magic-byte sniffing of its content when the extension is unknown.
// References that neither table recognizes are excluded from the publish set.
func ClassifyMedia(locator string, content []byte) (FileType, bool) {
	if i := strings.IndexAny(locator, "?#"); i >= 0 {
		locator = locator[:i]
	}
	name := locator[strings.LastIndexByte(locator, '/')+1:]
	if dot := strings.LastIndexByte(name, '.'); dot > 0 && dot < len(name)-1 {
		if ft, ok := mediaExtensions[strings.ToLower(name[dot+1:])]; ok {
			return ft, true
		}
		if ft, ok := allowedExtensions[strings.ToLower(name[dot+1:])]; ok {
			return ft, true
		}
	}
	return Sniff(content)
}

// ClassifyData parses a data: URI into its file type and payload. A generic
// octet-stream declaration falls back to magic-byte sniffing; when that also
// fails the asset is unclassifiable and reported false.
func ClassifyData(locator string) (FileType, []byte, bool) {
	rest, ok := strings.CutPrefix(locator, "data:")
	if !ok {
		return FileType{}, nil, false
	}
	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return FileType{}, nil, false
	}
	meta, payload := rest[:comma], rest[comma+1:]

	var declared string
	isBase64 := false
	for i, part := range strings.Split(meta, ";") {
		if i == 0 {
			declared = strings.ToLower(strings.TrimSpace(part))
			continue
		}
		if strings.TrimSpace(part) == "base64" {
			isBase64 = true
		}
	}

	var content []byte
	if isBase64 {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return FileType{}, nil, false
		}
		content = decoded
	} else {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return FileType{}, nil, false
		}
		content = []byte(unescaped)
	}

	if declared == "" || declared == octetStream {
		ft, ok := Sniff(content)
		if !ok {
			return FileType{}, nil, false
		}
		return ft, content, true
	}

	return FileType{Ext: extForMIME(declared), MIME: declared}, content, true
}

// extForMIME derives a usable extension from a declared MIME type.
func extForMIME(mime string) string {
	switch mime {
	case "image/svg+xml":
		return "svg"
	case "image/jpeg":
		return "jpg"
	case "font/ttf", "application/x-font-ttf", "application/font-sfnt":
		return "ttf"
	}
	if i := strings.LastIndexByte(mime, '/'); i >= 0 && i < len(mime)-1 {
		return mime[i+1:]
	}
	return "bin"
}
