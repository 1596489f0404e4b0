package emissionfactor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	activitydomain "github.com/smallbiznis/greentrack/internal/activity/domain"
)

var (
	ErrFactorUnavailable = errors.New("emission_factor_unavailable")
	ErrInvalidResponse   = errors.New("invalid_emission_factor_response")
)

// Provider looks up the kg CO2 per unit factor for a category in a region.
type Provider interface {
	ResolveFactor(ctx context.Context, category activitydomain.Category, region string) (float64, error)
}

// StaticProvider serves factors from a fixed table.
type StaticProvider struct {
	factors map[string]float64
}

func NewStaticProvider(factors map[string]float64) *StaticProvider {
	copied := make(map[string]float64, len(factors))
	for k, v := range factors {
		copied[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return &StaticProvider{factors: copied}
}

func (p *StaticProvider) ResolveFactor(_ context.Context, category activitydomain.Category, _ string) (float64, error) {
	factor, ok := p.factors[string(category)]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrFactorUnavailable, category)
	}
	return factor, nil
}

const defaultHTTPTimeout = 5 * time.Second

// HTTPProvider calls GET {base}/factors/{category}?region= and expects
// a JSON body of the form {"factor": 0.45}.
type HTTPProvider struct {
	baseURL    string
	httpClient *http.Client
}

type factorResponse struct {
	Factor *float64 `json:"factor"`
}

func NewHTTPProvider(baseURL string, client *http.Client) (*HTTPProvider, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid factor provider url: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPProvider{baseURL: baseURL, httpClient: client}, nil
}

func (p *HTTPProvider) ResolveFactor(ctx context.Context, category activitydomain.Category, region string) (float64, error) {
	endpoint := p.baseURL + "/factors/" + url.PathEscape(string(category))
	if region = strings.TrimSpace(region); region != "" {
		endpoint += "?" + url.Values{"region": []string{region}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: status %d", ErrFactorUnavailable, resp.StatusCode)
	}

	var body factorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if body.Factor == nil || *body.Factor < 0 {
		return 0, ErrInvalidResponse
	}
	return *body.Factor, nil
}
