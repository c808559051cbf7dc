package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/nikshitha/meeting-recorder/logger"
	"github.com/nikshitha/meeting-recorder/meeting"
	"github.com/nikshitha/meeting-recorder/stealth"
)

// actionTimeout bounds a click once its element has been found.
const actionTimeout = 10 * time.Second

// Page is the single tab a session drives. It implements meeting.Page.
type Page struct {
	page    *rod.Page
	owner   *Browser
	logger  *logger.Logger
	stealth *stealth.StealthManager
}

// Navigate opens url and waits for the load event
func (p *Page) Navigate(ctx context.Context, url string) error {
	p.logger.BrowserAction("navigate", url)

	pg := p.page.Context(ctx)
	if err := pg.Navigate(url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	if err := pg.WaitLoad(); err != nil {
		return fmt.Errorf("page load failed: %w", err)
	}

	p.stealth.PageLoadDelay(ctx)
	return nil
}

// element resolves loc, waiting until ctx is done
func (p *Page) element(ctx context.Context, loc meeting.Locator) (*rod.Element, error) {
	pg := p.page.Context(ctx)

	var (
		el  *rod.Element
		err error
	)
	switch loc.Strategy {
	case meeting.StrategyCSS:
		el, err = pg.Element(loc.Query)
	case meeting.StrategyText:
		el, err = pg.ElementR(loc.Query, loc.Pattern)
	case meeting.StrategyXPath:
		el, err = pg.ElementX(loc.Query)
	default:
		return nil, fmt.Errorf("unknown locator strategy %q", loc.Strategy)
	}

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: %s", meeting.ErrNoMatch, loc)
		}
		return nil, err
	}
	return el, nil
}

// Click finds loc within ctx and clicks it. The click itself gets its own
// budget so a slow find does not starve it.
func (p *Page) Click(ctx context.Context, loc meeting.Locator) error {
	el, err := p.element(ctx, loc)
	if err != nil {
		return err
	}

	actCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), actionTimeout)
	defer cancel()

	p.stealth.ActionDelay(actCtx)
	if err := el.Context(actCtx).ScrollIntoView(); err != nil {
		p.logger.WithError(err).Debug("Scroll into view failed")
	}
	if err := el.Context(actCtx).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %s: %w", loc, err)
	}

	p.logger.WithField("locator", loc.String()).Debug("Clicked")
	return nil
}

// Fill finds loc within ctx, clears it and types text keystroke by keystroke.
func (p *Page) Fill(ctx context.Context, loc meeting.Locator, text string) error {
	el, err := p.element(ctx, loc)
	if err != nil {
		return err
	}

	budget := actionTimeout + time.Duration(len(text))*time.Second
	actCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), budget)
	defer cancel()

	if err := el.Context(actCtx).SelectAllText(); err != nil {
		p.logger.WithError(err).Debug("Select existing text failed")
	}
	if err := p.stealth.HumanType(actCtx, el, text); err != nil {
		return fmt.Errorf("type into %s: %w", loc, err)
	}
	return nil
}

// Close tears down the page and its browser
func (p *Page) Close() error {
	if err := p.page.Close(); err != nil {
		p.logger.WithError(err).Debug("Page close failed")
	}
	return p.owner.Close()
}
