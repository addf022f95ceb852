package mlservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// maxClassifyInput bounds the request body sent to the classifier.
const maxClassifyInput = 4000

// transactionalKeywords maps classifier labels to a transactional verdict.
// A label counts as transactional if its lowercased text contains any of these.
var transactionalKeywords = []string{
	"transaction", "payment", "receipt", "invoice", "bill", "purchase",
	"order", "financial", "money", "charge", "paid", "refund", "1", "true",
}

// ClassificationResult is the normalized output of the classifier service.
// Err carries the degradation reason when the service could not be used;
// the result is still a valid (negative, zero-confidence) classification.
type ClassificationResult struct {
	IsTransactional bool
	Confidence      float64
	Err             string
}

// Classifier calls the external text-classification service.
type Classifier struct {
	url        string
	httpClient *http.Client
	retries    int
	baseDelay  time.Duration
}

func NewClassifier(url string, timeout time.Duration, retries int, baseDelay time.Duration) *Classifier {
	if retries <= 0 {
		retries = 3
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &Classifier{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		retries:    retries,
		baseDelay:  baseDelay,
	}
}

// Classify determines whether text describes a financial transaction. It never
// returns a Go error: service failures degrade to a negative zero-confidence
// result with Err set.
func (c *Classifier) Classify(ctx context.Context, text string) ClassificationResult {
	if strings.TrimSpace(text) == "" {
		return ClassificationResult{Err: "empty content"}
	}
	if c.url == "" {
		return ClassificationResult{Err: "classifier URL not configured"}
	}

	if len(text) > maxClassifyInput {
		text = text[:maxClassifyInput]
	}

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return ClassificationResult{Err: fmt.Sprintf("failed to marshal request: %v", err)}
	}

	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		body, err := c.post(ctx, payload)
		if err == nil {
			return parseClassifierResponse(body)
		}
		lastErr = err
		log.Printf("[Classifier] Attempt %d/%d failed: %v", attempt, c.retries, err)

		if attempt < c.retries {
			select {
			case <-time.After(time.Duration(attempt) * c.baseDelay):
			case <-ctx.Done():
				return ClassificationResult{Err: ctx.Err().Error()}
			}
		}
	}

	return ClassificationResult{Err: lastErr.Error()}
}

func (c *Classifier) post(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewBuffer(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier API error (%d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// parseClassifierResponse normalizes the heterogeneous response shapes the
// classifier is known to produce. Shapes are probed in a fixed priority order;
// anything unrecognized degrades to a negative result.
func parseClassifierResponse(body []byte) ClassificationResult {
	// Shape (a): [{"label": ..., "score": ...}, ...]
	var arr []struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal(body, &arr); err == nil && len(arr) > 0 && arr[0].Label != "" {
		return ClassificationResult{
			IsTransactional: isTransactionalLabel(arr[0].Label),
			Confidence:      arr[0].Score,
		}
	}

	// Shape (b): {"prediction"/"label": ..., "confidence"/"score": ...}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err == nil && obj != nil {
		label, ok := stringField(obj, "prediction")
		if !ok {
			label, ok = stringField(obj, "label")
		}
		if ok {
			confidence := 0.5
			if v, found := numberField(obj, "confidence"); found {
				confidence = v
			} else if v, found := numberField(obj, "score"); found {
				confidence = v
			}
			return ClassificationResult{
				IsTransactional: isTransactionalLabel(label),
				Confidence:      confidence,
			}
		}
	}

	// Shape (c): bare boolean
	var b bool
	if err := json.Unmarshal(body, &b); err == nil {
		confidence := 0.0
		if b {
			confidence = 1.0
		}
		return ClassificationResult{IsTransactional: b, Confidence: confidence}
	}

	// Shape (d): bare number, > 0.5 means transactional
	var n float64
	if err := json.Unmarshal(body, &n); err == nil {
		abs := n
		if abs < 0 {
			abs = -abs
		}
		return ClassificationResult{IsTransactional: n > 0.5, Confidence: abs}
	}

	return ClassificationResult{Err: "unknown response format"}
}

func isTransactionalLabel(label string) bool {
	lowered := strings.ToLower(label)
	for _, keyword := range transactionalKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}

func stringField(obj map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := obj[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	// Some deployments return booleans or numbers under "prediction"
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return fmt.Sprintf("%t", b), true
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return fmt.Sprintf("%g", n), true
	}
	return "", false
}

func numberField(obj map[string]json.RawMessage, key string) (float64, bool) {
	raw, ok := obj[key]
	if !ok {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	return 0, false
}
