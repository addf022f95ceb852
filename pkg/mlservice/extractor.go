package mlservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// ErrEmptyContent is returned when there is nothing to extract from.
var ErrEmptyContent = errors.New("empty content")

// Candidate is one normalized transaction candidate from the extractor.
type Candidate struct {
	Amount      float64
	Date        *time.Time
	Type        string
	Merchant    *string
	RawResponse string
}

// extractorResponse is the wire shape of the extraction service.
type extractorResponse struct {
	Success bool                 `json:"success"`
	Results []extractorCandidate `json:"results"`
}

type extractorCandidate struct {
	Success         bool   `json:"success"`
	FinalAmount     string `json:"final_amount"`
	TransactionDate string `json:"transaction_date"`
	TransactionType string `json:"transaction_type"`
	Merchant        string `json:"merchant"`
}

// Extractor calls the external structured-extraction service.
type Extractor struct {
	url        string
	httpClient *http.Client
	retries    int
	baseDelay  time.Duration
}

func NewExtractor(url string, timeout time.Duration, retries int, baseDelay time.Duration) *Extractor {
	if retries <= 0 {
		retries = 3
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &Extractor{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		retries:    retries,
		baseDelay:  baseDelay,
	}
}

// Extract pulls transaction candidates out of email text. Candidates whose own
// success flag is false or whose amount does not parse to a positive number
// are dropped silently.
func (e *Extractor) Extract(ctx context.Context, text string) ([]Candidate, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyContent
	}
	if e.url == "" {
		return nil, errors.New("extractor URL not configured")
	}

	payload, err := json.Marshal(map[string]string{"email_content": text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= e.retries; attempt++ {
		body, err := e.post(ctx, payload)
		if err == nil {
			return parseExtractorResponse(body), nil
		}
		lastErr = err
		log.Printf("[Extractor] Attempt %d/%d failed: %v", attempt, e.retries, err)

		if attempt < e.retries {
			select {
			case <-time.After(time.Duration(attempt) * e.baseDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, lastErr
}

func (e *Extractor) post(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", e.url, bytes.NewBuffer(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extractor request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extractor API error (%d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func parseExtractorResponse(body []byte) []Candidate {
	var resp extractorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		log.Printf("[Extractor] Unrecognized response shape: %v", err)
		return nil
	}
	if !resp.Success {
		return nil
	}

	candidates := make([]Candidate, 0, len(resp.Results))
	for _, result := range resp.Results {
		if !result.Success {
			continue
		}
		amount, ok := ParseAmount(result.FinalAmount)
		if !ok {
			continue
		}

		raw, _ := json.Marshal(result)
		candidates = append(candidates, Candidate{
			Amount:      amount,
			Date:        ParseDate(result.TransactionDate),
			Type:        result.TransactionType,
			Merchant:    CleanMerchant(result.Merchant),
			RawResponse: string(raw),
		})
	}
	return candidates
}
