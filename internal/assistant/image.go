package assistant

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxImageBytes bounds an embedded representative image. Anything
// larger is rejected rather than bloating every saved transcript.
const maxImageBytes = 5 << 20

// EmbedImage fetches a remote image and returns it as a self-contained
// data URI suitable for persisting inside a message.
//
// The fetch is bounded by the configured image timeout; any failure
// (network, status, oversized body, non-image content) returns an
// error and the caller stores no image at all — never a dangling
// remote reference.
func (c *Client) EmbedImage(ctx context.Context, rawURL string) (string, error) {
	if rawURL == "" {
		return "", fmt.Errorf("empty image URL")
	}

	ctx, cancel := context.WithTimeout(ctx, c.imageTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build image request: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch image: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return "", fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty image body")
	}

	contentType := resp.Header.Get("Content-Type")
	if idx := strings.IndexByte(contentType, ';'); idx >= 0 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	if !strings.HasPrefix(contentType, "image/") {
		contentType = http.DetectContentType(data)
		if !strings.HasPrefix(contentType, "image/") {
			return "", fmt.Errorf("not an image: %s", contentType)
		}
	}

	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data)), nil
}
