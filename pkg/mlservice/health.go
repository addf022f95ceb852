package mlservice

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HealthStatus reports the reachability of a model service.
type HealthStatus struct {
	Status string `json:"status"` // "healthy" or "error"
	Detail string `json:"detail,omitempty"`
}

const healthTimeout = 5 * time.Second

// HealthCheck probes the classifier's /health endpoint.
func (c *Classifier) HealthCheck(ctx context.Context) HealthStatus {
	return probeHealth(ctx, c.url)
}

// HealthCheck probes the extractor's /health endpoint.
func (e *Extractor) HealthCheck(ctx context.Context) HealthStatus {
	return probeHealth(ctx, e.url)
}

func probeHealth(ctx context.Context, serviceURL string) HealthStatus {
	if serviceURL == "" {
		return HealthStatus{Status: "error", Detail: "service URL not configured"}
	}

	parsed, err := url.Parse(serviceURL)
	if err != nil {
		return HealthStatus{Status: "error", Detail: fmt.Sprintf("invalid service URL: %v", err)}
	}
	parsed.Path = "/health"
	parsed.RawQuery = ""

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", parsed.String(), nil)
	if err != nil {
		return HealthStatus{Status: "error", Detail: err.Error()}
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return HealthStatus{Status: "error", Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return HealthStatus{Status: "error", Detail: fmt.Sprintf("health endpoint returned %d", resp.StatusCode)}
	}
	return HealthStatus{Status: "healthy"}
}
