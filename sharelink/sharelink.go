// Package sharelink produces and parses public share links.
//
// An encrypted link looks like
//
//	https://host/path/<filename>#<decryptionKey>
//
// and a plain one omits the fragment. Parse(Produce(filename, key)) must
// return the same filename and key — the pipeline relies on this round trip
// to keep a document's public URL and decryption key stable across repeated
// publishes.
package sharelink

import (
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// ErrNotShareLink is returned when a stored value cannot be parsed back into
// a filename.
var ErrNotShareLink = errors.New("sharelink: not a parseable share link")

// Record is a previously published link, split into its parts.
type Record struct {
	Filename string
	Key      string // empty for plain (unencrypted) links
	URL      string // the link as stored, fragment included
}

// Produce assembles a share link from a base URL, filename, and optional key.
func Produce(base, filename, key string) string {
	link := strings.TrimRight(base, "/") + "/" + filename
	if key != "" {
		link += "#" + key
	}
	return link
}

// Parse splits a stored share link into filename and decryption key.
func Parse(link string) (Record, error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return Record{}, ErrNotShareLink
	}
	if u.Scheme == "" || u.Host == "" {
		return Record{}, ErrNotShareLink
	}
	name := u.Path[strings.LastIndexByte(u.Path, '/')+1:]
	if name == "" {
		return Record{}, ErrNotShareLink
	}
	return Record{Filename: name, Key: u.Fragment, URL: link}, nil
}

// Resolve implements key continuity: given the document's stored link (may
// be empty), it returns the filename and key to reuse for this run. Both come
// back empty when there is nothing usable, in which case the cipher mints a
// fresh pair during encryption.
func Resolve(existing string) (filename, priorKey string) {
	if existing == "" {
		return "", ""
	}
	rec, err := Parse(existing)
	if err != nil {
		return "", ""
	}
	return rec.Filename, rec.Key
}

// NewFilename mints a fresh URL-safe filename for a first publish.
// UUIDv7 keeps server-side listings time-sortable.
func NewFilename() string {
	return strings.ReplaceAll(uuid.Must(uuid.NewV7()).String(), "-", "") + ".html"
}
