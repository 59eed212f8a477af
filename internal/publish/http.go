package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/danmuck/scoreboard/internal/score"
	"github.com/google/uuid"
)

const SinkHTTP = "http"

var (
	ErrInvalidBackendURL = errors.New("publish: invalid backend url")
	ErrMissingDeviceID   = errors.New("publish: missing device id")
	ErrUnexpectedStatus  = errors.New("publish: unexpected status")
)

// ScoreURL is {backend}/api/scoreboards/{deviceID}/score.
func ScoreURL(backend, deviceID string) (string, error) {
	backend = strings.TrimSpace(backend)
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return "", ErrMissingDeviceID
	}
	u, err := url.Parse(backend)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidBackendURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidBackendURL, backend)
	}
	return url.JoinPath(backend, "api", "scoreboards", deviceID, "score")
}

// HTTPSink POSTs the score pair to the backend.
type HTTPSink struct {
	client *http.Client
	url    string
}

func NewHTTPSink(backend, deviceID string, client *http.Client) (*HTTPSink, error) {
	target, err := ScoreURL(backend, deviceID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPSink{client: client, url: target}, nil
}

func (s *HTTPSink) Name() string {
	return SinkHTTP
}

func (s *HTTPSink) URL() string {
	return s.url
}

func (s *HTTPSink) Publish(ctx context.Context, snap score.Snapshot) error {
	body, err := json.Marshal(PayloadFor(snap))
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("publish: post %s: %w", s.url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}
