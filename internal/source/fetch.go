package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"talentscout-engine/internal/domain"
)

const userAgent = "TalentScout/1.0 (+local)"

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 20 * time.Second}
}

// getJSON performs one rate-limited GET against a source API and decodes
// the JSON body. Upstream failures map onto the domain error taxonomy so
// the scheduler can tell retryable from terminal without knowing HTTP.
func getJSON(ctx context.Context, hc *http.Client, lim *Limiter, src domain.Source, url, token string, out any) error {
	if lim != nil {
		if err := lim.Wait(ctx, src); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%s request: %w", src, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &domain.TransientFetchError{Source: src, Err: err}
	}
	defer res.Body.Close()

	if err := mapStatus(src, res.StatusCode); err != nil {
		return err
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%s decode: %w", src, err)
	}
	return nil
}

func mapStatus(src domain.Source, code int) error {
	switch {
	case code == http.StatusNotFound:
		return fmt.Errorf("%s: %w", src, domain.ErrNotFound)
	case code == http.StatusTooManyRequests:
		return &domain.TransientFetchError{Source: src, Err: domain.ErrRateLimited}
	case code >= 500:
		return &domain.TransientFetchError{
			Source: src,
			Err:    fmt.Errorf("status %d: %w", code, domain.ErrSourceUnavailable),
		}
	case code >= 400:
		return fmt.Errorf("%s status %d", src, code)
	}
	return nil
}
