package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sigil/internal/domain"
)

// HTTPProbe fetches a running agent's attested state from the governance
// endpoint the agent's org exposes. It is the default StateProbe
// implementation; the probe contract itself is a collaborator concern.
type HTTPProbe struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPProbe(baseURL string, timeout time.Duration) *HTTPProbe {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProbe{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProbe) Fetch(ctx context.Context, target domain.ProbeTarget) (*domain.LiveState, error) {
	if p == nil || p.BaseURL == "" {
		return nil, errors.New("probe base url not configured")
	}
	endpoint := fmt.Sprintf("%s/agents/%s/state?version=%s&org=%s",
		p.BaseURL,
		url.PathEscape(target.AgentID),
		url.QueryEscape(target.AgentVersion),
		url.QueryEscape(target.OrgID),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("probe request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("probe returned status %d", resp.StatusCode)
	}
	var state domain.LiveState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return nil, fmt.Errorf("decode probe response: %w", err)
	}
	if state.AgentID == "" || state.GoldenThreadHash == "" {
		return nil, errors.New("probe response missing agent identity or golden thread hash")
	}
	return &state, nil
}
