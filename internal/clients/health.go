package clients

import (
	"context"
	"net/http"
	"sync"
	"time"
)

type HealthTarget struct {
	Name   string
	Client *Client
	Path   string
}

type HealthResult struct {
	Name       string `json:"name"`
	OK         bool   `json:"ok"`
	StatusCode int    `json:"statusCode,omitempty"`
	Error      string `json:"error,omitempty"`
}

func CheckHealth(ctx context.Context, target HealthTarget) HealthResult {
	// Short health check timeout
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	resp, err := target.Client.Do(ctx, http.MethodGet, target.Path, "", nil, http.Header{})
	if err != nil {
		return HealthResult{Name: target.Name, OK: false, Error: err.Error()}
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	return HealthResult{Name: target.Name, OK: ok, StatusCode: resp.StatusCode}
}

// CheckAll checks every upstream concurrently; results keep target order.
func CheckAll(ctx context.Context, targets []HealthTarget) []HealthResult {
	results := make([]HealthResult, len(targets))

	var wg sync.WaitGroup
	wg.Add(len(targets))
	for i := range targets {
		go func() {
			defer wg.Done()
			results[i] = CheckHealth(ctx, targets[i])
		}()
	}
	wg.Wait()
	return results
}
