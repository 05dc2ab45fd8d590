package assets

import (
	"log/slog"
	"strings"

	"github.com/hazyhaar/notepub/digest"
)

// cssToken is one url(...) occurrence in stylesheet text.
type cssToken struct {
	// Raw is the full occurrence as written, url( through ).
	Raw string
	// Value is the locator with quoting and escapes removed.
	Value string
}

// scanURLTokens tokenizes url(...) references in CSS text. Handled edge
// cases: single/double quoted values, backslash-escaped quotes inside quoted
// values, unquoted values, and unquoted data URIs containing balanced
// parentheses. Malformed occurrences (unterminated string or parenthesis)
// are skipped.
func scanURLTokens(css string) []cssToken {
	var tokens []cssToken
	lower := strings.ToLower(css)

	for i := 0; i < len(css); {
		rel := strings.Index(lower[i:], "url(")
		if rel < 0 {
			break
		}
		start := i + rel
		// Reject matches inside identifiers ("-url(", "xurl(").
		if start > 0 && isIdentByte(css[start-1]) {
			i = start + 4
			continue
		}

		pos := start + 4
		for pos < len(css) && (css[pos] == ' ' || css[pos] == '\t' || css[pos] == '\n') {
			pos++
		}
		if pos >= len(css) {
			break
		}

		var value string
		var end int
		switch css[pos] {
		case '\'', '"':
			quote := css[pos]
			var sb strings.Builder
			j := pos + 1
			for j < len(css) && css[j] != quote {
				if css[j] == '\\' && j+1 < len(css) {
					j++
				}
				sb.WriteByte(css[j])
				j++
			}
			if j >= len(css) {
				i = start + 4
				continue // unterminated string
			}
			value = sb.String()
			j++ // past closing quote
			for j < len(css) && (css[j] == ' ' || css[j] == '\t' || css[j] == '\n') {
				j++
			}
			if j >= len(css) || css[j] != ')' {
				i = start + 4
				continue
			}
			end = j + 1
		default:
			depth := 1
			j := pos
			for j < len(css) && depth > 0 {
				switch css[j] {
				case '(':
					depth++
				case ')':
					depth--
				}
				if depth > 0 {
					j++
				}
			}
			if depth != 0 {
				i = start + 4
				continue // unbalanced
			}
			value = strings.TrimSpace(css[pos:j])
			end = j + 1
		}

		tokens = append(tokens, cssToken{Raw: css[start:end], Value: value})
		i = end
	}
	return tokens
}

func isIdentByte(b byte) bool {
	return b == '-' || b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// ReadFunc resolves a local locator to its bytes.
type ReadFunc func(path string) ([]byte, error)

// CSSExtractor scans aggregated stylesheet text for embedded assets, feeds
// the unseen ones to an upload queue, and rewrites the text once every upload
// has resolved. Substitutions are recorded as a pending list and applied in
// one pass by Rewritten, never by mutating shared text mid-flight.
type CSSExtractor struct {
	queue  *Queue
	css    string
	logger *slog.Logger
	subs   []substitution
}

type substitution struct {
	raw string
	url string
}

// NewCSSExtractor creates an extractor over one stylesheet aggregate.
func NewCSSExtractor(queue *Queue, css string, logger *slog.Logger) *CSSExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSSExtractor{queue: queue, css: css, logger: logger}
}

// Enqueue classifies every url(...) occurrence and queues the local and
// data-URI assets for upload. Remote references stay untouched;
// unclassifiable ones are skipped and their original reference survives in
// the output. Returns the number of items queued.
//
// Callbacks only record pending substitutions; the queue fires them
// sequentially after its flush settles, so no locking is needed here.
func (e *CSSExtractor) Enqueue(readLocal ReadFunc) int {
	queued := 0
	for _, tok := range scanURLTokens(e.css) {
		tok := tok
		var ft FileType
		var content []byte

		switch KindOf(tok.Value) {
		case KindRemote:
			continue
		case KindData:
			var ok bool
			ft, content, ok = ClassifyData(tok.Value)
			if !ok {
				e.logger.Debug("assets: unclassifiable data URI skipped")
				continue
			}
		case KindLocal:
			var ok bool
			ft, ok = ClassifyLocal(tok.Value)
			if !ok {
				e.logger.Debug("assets: extension not allow-listed, skipped", "ref", tok.Value)
				continue
			}
			if readLocal == nil {
				continue
			}
			b, err := readLocal(tok.Value)
			if err != nil {
				e.logger.Debug("assets: local read failed, skipped", "ref", tok.Value, "error", err)
				continue
			}
			content = b
		}

		e.queue.Add(Item{
			Type:    ft,
			Hash:    digest.Sum(content),
			Content: content,
			ByteLen: len(content),
			OnResolved: func(url string) {
				e.subs = append(e.subs, substitution{raw: tok.Raw, url: url})
			},
		})
		queued++
	}
	return queued
}

// Rewritten applies all recorded substitutions to the stylesheet text and
// returns the result. Each substitution replaces one full original url(...)
// token, so later replacements cannot corrupt earlier ones.
func (e *CSSExtractor) Rewritten() string {
	css := e.css
	for _, s := range e.subs {
		css = strings.Replace(css, s.raw, "url("+s.url+")", 1)
	}
	return css
}
