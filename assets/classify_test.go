package assets

import (
	"encoding/base64"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		in   string
		want Kind
	}{
		{"https://cdn.example.com/a.png", KindRemote},
		{"http://cdn.example.com/a.png", KindRemote},
		{"data:image/png;base64,AAAA", KindData},
		{"fonts/body.woff2", KindLocal},
		{"foo.svg", KindLocal},
	}
	for _, c := range cases {
		if got := KindOf(c.in); got != c.want {
			t.Fatalf("KindOf(%q): got %v, want %v", c.in, got, c.want)
		}
	}
}

func TestClassifyLocal_AllowList(t *testing.T) {
	for _, ok := range []string{"a.ttf", "b.otf", "c.woff", "d.woff2", "e.svg", "dir/deep/F.WOFF2", "g.svg?v=2"} {
		if _, accepted := ClassifyLocal(ok); !accepted {
			t.Fatalf("ClassifyLocal(%q): expected accept", ok)
		}
	}
	for _, bad := range []string{"a.png", "b.js", "c.css", "noext", ".hidden", "trailingdot."} {
		if _, accepted := ClassifyLocal(bad); accepted {
			t.Fatalf("ClassifyLocal(%q): expected reject", bad)
		}
	}
}

func TestClassifyData_DeclaredMIME(t *testing.T) {
	uri := "data:font/woff2;base64," + base64.StdEncoding.EncodeToString([]byte("wOF2abcdef"))
	ft, content, ok := ClassifyData(uri)
	if !ok {
		t.Fatal("expected classification")
	}
	if ft.MIME != "font/woff2" || ft.Ext != "woff2" {
		t.Fatalf("got %+v", ft)
	}
	if string(content) != "wOF2abcdef" {
		t.Fatalf("payload: got %q", content)
	}
}

func TestClassifyData_OctetStreamSniffed(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 1, 2, 3}
	uri := "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(png)
	ft, _, ok := ClassifyData(uri)
	if !ok {
		t.Fatal("expected sniffed classification")
	}
	if ft.Ext != "png" || ft.MIME != "image/png" {
		t.Fatalf("sniff: got %+v, want png", ft)
	}
}

func TestClassifyData_OctetStreamUnknownRejected(t *testing.T) {
	uri := "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString([]byte{0x00, 0xFF, 0x13, 0x37})
	if _, _, ok := ClassifyData(uri); ok {
		t.Fatal("expected rejection for unsniffable octet-stream")
	}
}

func TestClassifyData_Malformed(t *testing.T) {
	for _, bad := range []string{"data:image/png;base64,%%%not-base64%%%", "data:no-comma", "nope"} {
		if _, _, ok := ClassifyData(bad); ok {
			t.Fatalf("ClassifyData(%q): expected rejection", bad)
		}
	}
}

func TestSniff_Table(t *testing.T) {
	cases := []struct {
		payload []byte
		ext     string
	}{
		{[]byte{0xFF, 0xD8, 0xFF, 0xE0}, "jpg"},
		{[]byte("GIF89a..."), "gif"},
		{[]byte("RIFF1234WEBPVP8 "), "webp"},
		{[]byte("wOFFxxxx"), "woff"},
		{[]byte("OTTOxxxx"), "otf"},
		{[]byte{0x00, 0x01, 0x00, 0x00, 0x00}, "ttf"},
		{[]byte("%PDF-1.7"), "pdf"},
		{[]byte("xxxxftypisom"), "mp4"},
		{[]byte("<svg xmlns='x'>"), "svg"},
	}
	for _, c := range cases {
		ft, ok := Sniff(c.payload)
		if !ok || ft.Ext != c.ext {
			t.Fatalf("Sniff(% x): got (%+v, %v), want ext %q", c.payload[:4], ft, ok, c.ext)
		}
	}
	if _, ok := Sniff([]byte{0x01, 0x02}); ok {
		t.Fatal("Sniff: expected miss for unknown bytes")
	}
}
