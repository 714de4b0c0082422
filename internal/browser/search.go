package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/spigell/profile-extractor/internal/profile"
)

// ListIdentifiers walks up to maxPages pages of a search result starting at
// searchURL and collects profile links. maxPages <= 0 follows every page.
func (b *Browser) ListIdentifiers(ctx context.Context, searchURL string, maxPages int) ([]profile.Identifier, error) {
	html, err := b.render(ctx, searchURL, chromedp.WaitReady("body", chromedp.ByQuery))
	if err != nil {
		return nil, err
	}

	var ids []profile.Identifier
	seen := profile.NewProcessedSet()

	for page := 1; ; page++ {
		links, err := ProfileLinks(html)
		if err != nil {
			return ids, err
		}

		added := 0
		for _, link := range links {
			id := profile.Identifier(link)
			if seen.Has(id) {
				continue
			}
			seen.Add(id)
			ids = append(ids, id)
			added++
		}

		b.logger.Info("search page scanned",
			zap.Int("page", page),
			zap.Int("found", added),
			zap.Int("total", len(ids)),
		)

		if (maxPages > 0 && page >= maxPages) || !HasNextPage(html) {
			break
		}

		html, err = b.nextPage(ctx)
		if err != nil {
			b.logger.Warn("stopping pagination", zap.Int("page", page), zap.Error(err))
			break
		}
	}

	return ids, nil
}

func (b *Browser) nextPage(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	navCtx, cancel := context.WithTimeout(b.tab, b.cfg.NavigationTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	err := chromedp.Run(navCtx,
		chromedp.Click(nextPageSelector, chromedp.ByQuery, chromedp.NodeVisible),
		chromedp.Sleep(b.cfg.SettleDelay),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("next search page: %w", err)
	}

	return html, nil
}
