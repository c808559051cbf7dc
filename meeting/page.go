package meeting

import "context"

// Page is the browser capability the session driver needs. Every blocking
// call honours the context deadline, which is how per-locator timeouts are
// applied.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, loc Locator) error
	Fill(ctx context.Context, loc Locator, text string) error
	StartCapture(ctx context.Context) (Recorder, error)
	// Close tears down the page and the browser that owns it.
	Close() error
}

// Recorder is a handle to one in-page capture returned by StartCapture.
type Recorder interface {
	// Stop finalises the capture and returns its payload as a data URL.
	// An empty string means the capture produced nothing.
	Stop(ctx context.Context) (string, error)
}
