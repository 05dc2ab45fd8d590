package publish

import (
	"context"
	"fmt"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// Preview runs capture and transform and renders the result as markdown.
// Nothing is uploaded, encrypted, or written to the store — this is the
// dry-run view of exactly what a real run would publish.
func (p *Publisher) Preview(ctx context.Context, req Request) (string, error) {
	snap, rules, err := p.capture(ctx, req)
	if err != nil {
		return "", err
	}
	p.transformer.Apply(snap, rules, storeResolver{ctx: ctx, meta: p.deps.Store})

	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	md, err := conv.ConvertString(snap.ContentHTML())
	if err != nil {
		return "", fmt.Errorf("publish: render preview: %w", err)
	}
	return md, nil
}
