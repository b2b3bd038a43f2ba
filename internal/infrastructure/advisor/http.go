package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"triarb/internal/application/port"
)

// HTTPAdvisor posts opportunity summaries to an external decision service.
// Errors are surfaced to the caller, which treats them as "no advice".
type HTTPAdvisor struct {
	url    string
	client *http.Client
}

var _ port.Advisor = (*HTTPAdvisor)(nil)

func NewHTTPAdvisor(url string, timeout time.Duration) *HTTPAdvisor {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPAdvisor{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (a *HTTPAdvisor) Advise(ctx context.Context, s port.OpportunitySummary) (port.Advice, error) {
	body, err := json.Marshal(s)
	if err != nil {
		return port.Advice{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return port.Advice{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return port.Advice{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return port.Advice{}, fmt.Errorf("advisor: %d %s", resp.StatusCode, string(b))
	}
	var advice port.Advice
	if err := json.NewDecoder(resp.Body).Decode(&advice); err != nil {
		return port.Advice{}, fmt.Errorf("advisor decode: %w", err)
	}
	return advice, nil
}
