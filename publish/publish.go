// Package publish orchestrates one document publish run: wait for the render
// to stabilise, transform the captured tree, upload embedded assets and theme
// stylesheet deduplicated by content hash, encrypt (or plain-assemble) the
// result, submit it to the share store, and patch the document's metadata
// with the resulting link.
//
// One run per document at a time; a run either completes or surfaces a single
// terminal failure. The decryption key and filename are minted once on first
// publish and carried verbatim on every republish, so the share link a user
// has already distributed keeps working.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hazyhaar/notepub/assets"
	"github.com/hazyhaar/notepub/digest"
	"github.com/hazyhaar/notepub/remote"
	"github.com/hazyhaar/notepub/renderwatch"
	"github.com/hazyhaar/notepub/sharelink"
	"github.com/hazyhaar/notepub/store"
	"github.com/hazyhaar/notepub/transform"
)

// State names one pipeline stage for status reporting.
type State string

const (
	StateAwaitingAuth     State = "awaiting_auth"
	StateCapturing        State = "capturing_snapshot"
	StateTransforming     State = "transforming_content"
	StateExtractingAssets State = "extracting_assets"
	StateExtractingStyles State = "extracting_style_assets"
	StateEncrypting       State = "encrypting"
	StateSubmitting       State = "submitting"
	StatePatchingMetadata State = "patching_metadata"
	StateDone             State = "done"
	StateFailed           State = "failed"
)

// StatusFunc receives the evolving status line. The last call for a run is
// always StateDone or StateFailed.
type StatusFunc func(state State, message string)

// VaultReader resolves a document-internal locator to its bytes.
type VaultReader interface {
	ReadAsset(locator string) ([]byte, error)
}

// Clipboard copies the share link after a successful publish. A copy failure
// is swallowed; the publish still reports success.
type Clipboard interface {
	Copy(text string) error
}

// Deps are the external collaborators of a Publisher.
type Deps struct {
	Transport remote.Transport
	Store     *store.Store
	// Clipboard is optional; nil disables link copying.
	Clipboard Clipboard
	// OnAuthNeeded is signalled when a run halts for a missing API key.
	OnAuthNeeded func()
	// Status receives status updates; nil discards them.
	Status StatusFunc
	Logger *slog.Logger
}

// Request describes one publish run.
type Request struct {
	// DocID identifies the logical document in the metadata store.
	DocID string
	Title string
	// Source is the render tree to capture.
	Source renderwatch.Source
	// CSS is the aggregated stylesheet text at capture time.
	CSS string
	// Styles are the captured element presentation snapshots.
	Styles []transform.ElementStyle
	// Vault reads local asset bytes; nil skips local references.
	Vault VaultReader
	// ForceTheme re-uploads the theme stylesheet even when already published.
	ForceTheme bool
	// Unencrypted publishes plain HTML for this document regardless of the
	// global setting's default.
	Unencrypted bool
	// CopyLink forces a clipboard copy for this run.
	CopyLink bool
}

// Result is the outcome of a successful run.
type Result struct {
	// Link is the public share link, decryption key in the fragment when
	// encrypted.
	Link      string
	Filename  string
	Key       string
	Encrypted bool
	// AssetsUploaded counts distinct new uploads across the run.
	AssetsUploaded int
}

// Publisher runs the publish pipeline.
type Publisher struct {
	cfg         Config
	deps        Deps
	detector    *renderwatch.Detector
	transformer *transform.Transformer
	log         *slog.Logger
}

// New creates a Publisher.
func New(cfg Config, deps Deps) *Publisher {
	cfg.defaults()
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Publisher{
		cfg:  cfg,
		deps: deps,
		detector: renderwatch.New(renderwatch.Config{
			Logger: deps.Logger,
		}),
		transformer: transform.New(transform.Config{
			RemoveFrontmatter: !cfg.KeepFrontmatter,
			Logger:            deps.Logger,
		}),
		log: deps.Logger,
	}
}

func (p *Publisher) status(state State, msg string) {
	if p.deps.Status != nil {
		p.deps.Status(state, msg)
	}
	p.log.Debug("publish: "+msg, "state", string(state))
}

func (p *Publisher) fail(msg string, err error) error {
	p.status(StateFailed, msg)
	return err
}

// Run publishes one document end to end.
func (p *Publisher) Run(ctx context.Context, req Request) (Result, error) {
	if p.cfg.APIKey == "" {
		p.status(StateAwaitingAuth, "no api key configured")
		if p.deps.OnAuthNeeded != nil {
			p.deps.OnAuthNeeded()
		}
		return Result{}, ErrAuthMissing
	}
	if req.DocID == "" {
		return Result{}, ErrNoDocument
	}
	if req.Source == nil {
		return Result{}, ErrNoDocument
	}

	// Capture.
	p.status(StateCapturing, "waiting for render to settle")
	snap, rules, err := p.capture(ctx, req)
	if err != nil {
		return Result{}, p.fail("captured render could not be parsed", err)
	}
	styles := make([]transform.ElementStyle, len(req.Styles))
	copy(styles, req.Styles)
	transform.NormalizeTheme(styles, p.cfg.Theme)

	// Transform.
	p.status(StateTransforming, "transforming content")
	p.transformer.Apply(snap, rules, storeResolver{ctx: ctx, meta: p.deps.Store})

	queue := assets.NewQueue(uploaderAdapter{p.deps.Transport}, assets.QueueConfig{
		Concurrency: p.cfg.UploadConcurrency,
		Logger:      p.log,
	})
	uploaded := 0

	// Document media.
	p.status(StateExtractingAssets, "uploading embedded assets")
	p.enqueueMedia(snap, req.Vault, queue)
	resolved, err := queue.Flush(ctx, p.progress(StateExtractingAssets))
	if err != nil {
		// Failed items keep their original reference; the run continues.
		p.log.Warn("publish: some asset uploads failed", "error", err)
	}
	uploaded += len(resolved)

	// Theme stylesheet, first publish or forced only.
	themeDone, err := p.deps.Store.ThemePublished(ctx, req.DocID)
	if err != nil {
		p.log.Warn("publish: theme status unavailable", "error", err)
	}
	if req.CSS != "" && (!themeDone || req.ForceTheme) {
		p.status(StateExtractingStyles, "uploading theme assets")
		n, themeErr := p.publishTheme(ctx, req, queue)
		uploaded += n
		if themeErr != nil {
			// Theme failure aborts this sub-stage only.
			p.log.Warn("publish: theme upload failed", "error", themeErr)
		} else if err := p.deps.Store.SetThemePublished(ctx, req.DocID, true); err != nil {
			p.log.Warn("publish: theme status not recorded", "error", err)
		}
	}

	// Key continuity, then encryption or plain assembly.
	p.status(StateEncrypting, "assembling publish payload")
	existing := p.deps.Store.ShareLink(ctx, req.DocID)
	filename, priorKey := sharelink.Resolve(existing)
	if filename == "" {
		filename = sharelink.NewFilename()
	}

	content := snap.ContentHTML()
	tpl := remote.Template{
		Filename: filename,
		Width:    p.cfg.Width,
		Elements: styles,
		MathJax:  snap.HasClass("math"),
	}
	key := ""
	encrypted := !(p.cfg.Unencrypted || req.Unencrypted)
	if encrypted {
		sealed, err := sealPayload(content, req.Title, priorKey)
		if err != nil {
			return Result{}, p.fail("encryption failed", err)
		}
		key = sealed.Key
		tpl.Content = EncodeSealed(sealed)
		tpl.Encrypted = true
	} else {
		tpl.Content = content
		tpl.Title = req.Title
		tpl.Description = describe(snap.ParagraphText())
	}

	// Submit.
	p.status(StateSubmitting, "submitting document")
	url, err := p.deps.Transport.CreateDocument(ctx, tpl)
	if err != nil {
		return Result{}, p.fail("submission failed", fmt.Errorf("publish: submit: %w", err))
	}

	// Patch metadata.
	p.status(StatePatchingMetadata, "recording share link")
	link := url
	if encrypted {
		link = strings.TrimSuffix(url, "#") + "#" + key
	}
	if err := p.deps.Store.PutLink(ctx, req.DocID, req.Title, link, time.Now()); err != nil {
		return Result{}, p.fail("metadata write failed", err)
	}
	if (p.cfg.CopyLink || req.CopyLink) && p.deps.Clipboard != nil {
		if err := p.deps.Clipboard.Copy(link); err != nil {
			p.log.Warn("publish: clipboard denied", "error", err)
		}
	}

	p.status(StateDone, "published "+link)
	return Result{
		Link:           link,
		Filename:       filename,
		Key:            key,
		Encrypted:      encrypted,
		AssetsUploaded: uploaded,
	}, nil
}

// capture waits for the render to settle, sanitises the flattened markup, and
// parses it into the run's snapshot plus the captured rule set.
func (p *Publisher) capture(ctx context.Context, req Request) (*transform.Snapshot, *transform.StyleRuleSet, error) {
	flattened := p.detector.Await(ctx, req.Source)
	snap, err := transform.ParseSnapshot(transform.Sanitize(flattened))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCaptureParse, err)
	}
	return snap, transform.ParseRuleSet(req.CSS), nil
}

// enqueueMedia queues every classifiable local or data-URI media reference.
// Remote references stay untouched; unclassifiable ones keep their original
// locator.
func (p *Publisher) enqueueMedia(snap *transform.Snapshot, vault VaultReader, queue *assets.Queue) {
	for _, ref := range snap.Media() {
		ref := ref
		var ft assets.FileType
		var content []byte

		switch assets.KindOf(ref.Locator) {
		case assets.KindRemote:
			continue
		case assets.KindData:
			var ok bool
			ft, content, ok = assets.ClassifyData(ref.Locator)
			if !ok {
				p.log.Debug("publish: unclassifiable data URI skipped")
				continue
			}
		case assets.KindLocal:
			if vault == nil {
				continue
			}
			b, err := vault.ReadAsset(ref.Locator)
			if err != nil {
				p.log.Debug("publish: local asset read failed, skipped",
					"ref", ref.Locator, "error", err)
				continue
			}
			var ok bool
			ft, ok = assets.ClassifyMedia(ref.Locator, b)
			if !ok {
				p.log.Debug("publish: unclassifiable media skipped", "ref", ref.Locator)
				continue
			}
			content = b
		}

		queue.Add(assets.Item{
			Type:       ft,
			Hash:       digest.Sum(content),
			Content:    content,
			ByteLen:    len(content),
			OnResolved: ref.SetURL,
		})
	}
}

// publishTheme extracts the stylesheet's embedded assets, flushes them, then
// uploads the rewritten CSS once as a single stylesheet asset. Returns the
// number of distinct uploads.
func (p *Publisher) publishTheme(ctx context.Context, req Request, queue *assets.Queue) (int, error) {
	readLocal := assets.ReadFunc(nil)
	if req.Vault != nil {
		readLocal = req.Vault.ReadAsset
	}

	ext := assets.NewCSSExtractor(queue, req.CSS, p.log)
	ext.Enqueue(readLocal)
	resolved, err := queue.Flush(ctx, p.progress(StateExtractingStyles))
	if err != nil {
		return len(resolved), fmt.Errorf("publish: theme assets: %w", err)
	}

	css := ext.Rewritten()
	queue.Add(assets.Item{
		Type:    assets.FileType{Ext: "css", MIME: "text/css"},
		Hash:    digest.SumString(css),
		Content: []byte(css),
	})
	cssResolved, err := queue.Flush(ctx, nil)
	if err != nil {
		return len(resolved) + len(cssResolved), fmt.Errorf("publish: theme stylesheet: %w", err)
	}
	return len(resolved) + len(cssResolved), nil
}

// progress adapts the queue's counters onto the status line.
func (p *Publisher) progress(state State) assets.Progress {
	return func(done, total int) {
		p.status(state, fmt.Sprintf("uploaded %d/%d", done, total))
	}
}

// storeResolver resolves internal link targets against the metadata store.
type storeResolver struct {
	ctx  context.Context
	meta *store.Store
}

func (r storeResolver) ShareLink(target string) (string, bool) {
	if r.meta == nil {
		return "", false
	}
	link := r.meta.ShareLink(r.ctx, target)
	return link, link != ""
}

// uploaderAdapter bridges the transport onto the queue's Uploader contract.
type uploaderAdapter struct {
	transport remote.Transport
}

func (u uploaderAdapter) Upload(ctx context.Context, it assets.Item) (string, error) {
	return u.transport.Upload(ctx, remote.Descriptor{
		FileType: it.Type.Ext,
		Hash:     it.Hash,
		ByteLen:  it.ByteLen,
		Content:  it.Content,
	})
}
