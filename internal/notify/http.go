package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPNotifier posts each Push as JSON to a push gateway.
type HTTPNotifier struct {
	Endpoint  string
	ServerKey string
	Client    *http.Client
}

// NewHTTPNotifier returns a notifier with its own client timeout.
func NewHTTPNotifier(endpoint, serverKey string, timeout time.Duration) *HTTPNotifier {
	return &HTTPNotifier{
		Endpoint:  endpoint,
		ServerKey: serverKey,
		Client:    &http.Client{Timeout: timeout},
	}
}

func (n *HTTPNotifier) Send(ctx context.Context, p Push) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode push: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.ServerKey != "" {
		req.Header.Set("Authorization", "key="+n.ServerKey)
	}

	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("push gateway returned %d", resp.StatusCode)
	}
	return nil
}
