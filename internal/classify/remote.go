// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/pdiddy/scholar-snapshot/internal/httputil"
	"github.com/pdiddy/scholar-snapshot/pkg/types"
)

// RemoteModel scores feature vectors with an HTTP service. Each call POSTs
// {"schema", "features", "values"} and expects {"probabilities": [...]}.
// The service is trusted to have been trained on Schema.
type RemoteModel struct {
	endpoint  string
	schema    string
	userAgent string
	apiKey    string
	retrier   *httputil.Retrier
}

type remoteRequest struct {
	Schema   string                `json:"schema"`
	Features [FeatureCount]string  `json:"features"`
	Values   [FeatureCount]float64 `json:"values"`
}

type remoteResponse struct {
	Probabilities []float64 `json:"probabilities"`
}

// NewRemoteModel returns a RemoteModel for endpoint. Requests are retried
// on HTTP 429 and 503 per cfg.MaxRetries.
func NewRemoteModel(endpoint string, cfg types.HTTPConfig, logger *zap.Logger) *RemoteModel {
	return &RemoteModel{
		endpoint:  endpoint,
		schema:    FeatureSchema,
		userAgent: cfg.UserAgent,
		apiKey:    cfg.APIKey,
		retrier: &httputil.Retrier{
			Client:     &http.Client{Timeout: cfg.Timeout},
			MaxRetries: cfg.MaxRetries,
			Logger:     logger,
		},
	}
}

// FeatureSchema implements Classifier.
func (m *RemoteModel) FeatureSchema() string { return m.schema }

// PredictProba implements Classifier.
func (m *RemoteModel) PredictProba(ctx context.Context, fv FeatureVector) ([]float64, error) {
	body, err := json.Marshal(remoteRequest{Schema: m.schema, Features: FeatureNames, Values: fv})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.userAgent != "" {
		req.Header.Set("User-Agent", m.userAgent)
	}
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.retrier.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("scoring request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scoring service returned HTTP %d", resp.StatusCode)
	}

	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("parsing scoring response: %w", err)
	}
	return out.Probabilities, nil
}
