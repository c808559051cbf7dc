package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/nikshitha/meeting-recorder/logger"
	"github.com/nikshitha/meeting-recorder/meeting"
)

const captureMimeType = "audio/webm"

// startCaptureJS requests a display capture of the current tab and starts a
// MediaRecorder on its audio. The resolved object is the capture handle; it
// stays in the page only as long as the remote object reference is held.
const startCaptureJS = `async (mimeType) => {
	const display = await navigator.mediaDevices.getDisplayMedia({
		audio: true,
		video: true,
		preferCurrentTab: true,
		selfBrowserSurface: 'include',
	});
	const audio = display.getAudioTracks();
	if (audio.length === 0) {
		display.getTracks().forEach((t) => t.stop());
		throw new Error('display capture has no audio track');
	}
	const options = MediaRecorder.isTypeSupported(mimeType) ? { mimeType } : {};
	const recorder = new MediaRecorder(new MediaStream(audio), options);
	const chunks = [];
	recorder.ondataavailable = (event) => {
		if (event.data && event.data.size > 0) {
			chunks.push(event.data);
		}
	};
	recorder.start(1000);
	return { recorder, chunks, display, mimeType: recorder.mimeType || mimeType };
}`

// stopCaptureJS runs with the capture handle bound to this and resolves to a
// data URL of the recorded audio.
const stopCaptureJS = `function () {
	const handle = this;
	return new Promise((resolve) => {
		const finish = () => {
			handle.display.getTracks().forEach((t) => t.stop());
			const blob = new Blob(handle.chunks, { type: handle.mimeType });
			const reader = new FileReader();
			reader.onload = () => resolve(reader.result);
			reader.onerror = () => resolve(null);
			reader.readAsDataURL(blob);
		};
		if (handle.recorder.state === 'inactive') {
			finish();
			return;
		}
		handle.recorder.onstop = finish;
		handle.recorder.stop();
	});
}`

// Recorder is a live in-page capture. It implements meeting.Recorder.
type Recorder struct {
	page   *rod.Page
	handle *proto.RuntimeRemoteObject
	logger *logger.Logger
}

// StartCapture begins recording the tab's audio
func (p *Page) StartCapture(ctx context.Context) (meeting.Recorder, error) {
	handle, err := p.page.Context(ctx).Evaluate(
		rod.Eval(startCaptureJS, captureMimeType).ByObject().ByPromise(),
	)
	if err != nil {
		return nil, fmt.Errorf("getDisplayMedia failed: %w", err)
	}

	p.logger.WithField("mime_type", captureMimeType).Info("Capture started")
	return &Recorder{
		page:   p.page,
		handle: handle,
		logger: p.logger,
	}, nil
}

// Stop finalises the capture and returns its data URL. The in-page handle is
// released whether or not stopping succeeds.
func (r *Recorder) Stop(ctx context.Context) (string, error) {
	defer func() {
		if err := r.page.Release(r.handle); err != nil {
			r.logger.WithError(err).Debug("Failed to release capture handle")
		}
	}()

	res, err := r.page.Context(ctx).Evaluate(
		rod.Eval(stopCaptureJS).This(r.handle).ByPromise(),
	)
	if err != nil {
		return "", fmt.Errorf("stopping MediaRecorder failed: %w", err)
	}

	if res.Value.Nil() {
		return "", nil
	}
	return res.Value.Str(), nil
}
