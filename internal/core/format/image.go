package format

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
)

// maxImageBytes caps image downloads at 10 MiB.
const maxImageBytes = 10 << 20

// fetchImage downloads rawURL and returns the body base64-encoded for
// inlining into an Anthropic image block.
func (f *Formatter) fetchImage(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("image request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("image fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image fetch: status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("image read: %w", err)
	}
	if len(data) > maxImageBytes {
		return "", fmt.Errorf("image fetch: body exceeds %d bytes", maxImageBytes)
	}

	return base64.StdEncoding.EncodeToString(data), nil
}
