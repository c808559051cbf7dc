package session

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	artifactPrefix = "meeting_"
	artifactExt    = ".webm"
	// ISO-8601 in UTC with colons replaced and fractional seconds dropped.
	artifactTimeLayout = "2006-01-02T15-04-05"
)

// Artifact is one recording written to disk.
type Artifact struct {
	Path      string
	Size      int64
	StartedAt time.Time
	StoppedAt time.Time
}

// Duration returns how long the capture ran.
func (a Artifact) Duration() time.Duration {
	return a.StoppedAt.Sub(a.StartedAt)
}

// ArtifactName returns the file name for a recording started at t.
func ArtifactName(t time.Time) string {
	return artifactPrefix + t.UTC().Format(artifactTimeLayout) + artifactExt
}

// EnsureDir creates the recordings directory if it is missing.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create recordings directory: %w", err)
	}
	return nil
}

// DecodeDataURL extracts the bytes from a base64 data URL produced by
// FileReader.readAsDataURL. An empty payload decodes to nil.
func DecodeDataURL(dataURL string) ([]byte, error) {
	if dataURL == "" {
		return nil, nil
	}
	if !strings.HasPrefix(dataURL, "data:") {
		return nil, errors.New("not a data URL")
	}

	comma := strings.IndexByte(dataURL, ',')
	if comma < 0 {
		// An empty Blob reads back as a bare "data:" URL.
		return nil, nil
	}

	header, payload := dataURL[len("data:"):comma], dataURL[comma+1:]
	if !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("unsupported data URL encoding %q", header)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode recording payload: %w", err)
	}
	return data, nil
}

// artifactPath returns a path under dir for a recording started at t that
// does not collide with an existing file.
func artifactPath(dir string, t time.Time) string {
	path := filepath.Join(dir, ArtifactName(t))
	base := strings.TrimSuffix(path, artifactExt)
	for i := 1; fileExists(path); i++ {
		path = fmt.Sprintf("%s_%d%s", base, i, artifactExt)
	}
	return path
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func writeArtifact(path string, data []byte) (int64, error) {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return 0, fmt.Errorf("failed to write recording: %w", err)
	}
	return int64(len(data)), nil
}
