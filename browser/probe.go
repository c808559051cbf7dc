package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-rod/rod"
)

// probeSelector matches the controls a join or leave step can target
const probeSelector = `input, button, [role="button"]`

// Control describes one interactive element found on a page
type Control struct {
	Tag         string
	ID          string
	Name        string
	Type        string
	AriaLabel   string
	Placeholder string
	Text        string
}

// String renders the non-empty fields of c
func (c Control) String() string {
	parts := []string{strings.ToLower(c.Tag)}
	add := func(key, val string) {
		if val != "" {
			parts = append(parts, fmt.Sprintf("%s=%q", key, val))
		}
	}
	add("id", c.ID)
	add("name", c.Name)
	add("type", c.Type)
	add("aria-label", c.AriaLabel)
	add("placeholder", c.Placeholder)
	add("text", c.Text)
	return strings.Join(parts, " ")
}

// Probe lists the inputs and buttons currently on the page. It is used to
// refresh provider selectors when a meeting UI changes.
func (p *Page) Probe(ctx context.Context) ([]Control, error) {
	els, err := p.page.Context(ctx).Elements(probeSelector)
	if err != nil {
		return nil, fmt.Errorf("failed to list controls: %w", err)
	}

	controls := make([]Control, 0, len(els))
	for _, el := range els {
		c := Control{
			ID:          attr(el, "id"),
			Name:        attr(el, "name"),
			Type:        attr(el, "type"),
			AriaLabel:   attr(el, "aria-label"),
			Placeholder: attr(el, "placeholder"),
		}
		if tag, err := el.Property("tagName"); err == nil {
			c.Tag = tag.Str()
		}
		if text, err := el.Text(); err == nil {
			c.Text = strings.Join(strings.Fields(text), " ")
		}
		controls = append(controls, c)
	}

	p.logger.WithField("count", len(controls)).Debug("Page probed")
	return controls, nil
}

func attr(el *rod.Element, name string) string {
	v, err := el.Attribute(name)
	if err != nil || v == nil {
		return ""
	}
	return *v
}
