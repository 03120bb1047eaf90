package triage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Classifier scores a field submission. Implementations must be safe for
// concurrent use.
type Classifier interface {
	Classify(ctx context.Context, sub Submission) (*Classification, error)
}

// HTTPClassifier talks to the external scoring service.
type HTTPClassifier struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

func NewHTTPClassifier(baseURL string, timeout time.Duration, logger zerolog.Logger) *HTTPClassifier {
	return &HTTPClassifier{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// classifyRequest is the scorer's wire format. It is deliberately separate
// from Submission: the scorer keys vitals as hr/bp/spo2/rr and takes blood
// pressure as a single "sys/dia" string, and it ignores keys it does not
// recognize, so sending storage-model names would silently zero the score.
type classifyRequest struct {
	Symptoms   []string       `json:"symptoms"`
	Vitals     classifyVitals `json:"vitals"`
	Age        *int           `json:"age,omitempty"`
	TraumaType string         `json:"trauma_type,omitempty"`
}

type classifyVitals struct {
	HR   *float64 `json:"hr,omitempty"`
	BP   string   `json:"bp,omitempty"`
	SpO2 *float64 `json:"spo2,omitempty"`
	RR   *float64 `json:"rr,omitempty"`
}

func newClassifyRequest(sub Submission) classifyRequest {
	req := classifyRequest{
		Symptoms: sub.Symptoms,
		Vitals: classifyVitals{
			HR:   sub.Vitals.HeartRate,
			SpO2: sub.Vitals.SpO2,
			RR:   sub.Vitals.RespRate,
		},
		Age:        sub.Age,
		TraumaType: sub.TraumaType,
	}
	if sub.Vitals.BPSys != nil && sub.Vitals.BPDia != nil {
		req.Vitals.BP = fmt.Sprintf("%g/%g", *sub.Vitals.BPSys, *sub.Vitals.BPDia)
	}
	return req
}

type classifyResponse struct {
	EmergencyType    string   `json:"emergency_type"`
	EmergencyClass   string   `json:"emergency_class"`
	Confidence       float64  `json:"confidence"`
	UrgencyScore     float64  `json:"urgency_score"`
	RecommendedSetup []string `json:"recommended_setup"`
	HospitalRouting  struct {
		HospitalCode string `json:"hospital_code"`
		Rationale    string `json:"rationale"`
	} `json:"hospital_routing"`
}

func (c *HTTPClassifier) Classify(ctx context.Context, sub Submission) (*Classification, error) {
	body, err := json.Marshal(newClassifyRequest(sub))
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrClassifierUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error().Int("status", resp.StatusCode).Msg("classifier returned non-200")
		return nil, fmt.Errorf("%w: status %d", ErrClassifierUnavailable, resp.StatusCode)
	}

	var parsed classifyResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrClassifierUnavailable, err)
	}

	return &Classification{
		EmergencyType:    parsed.EmergencyType,
		EmergencyClass:   parsed.EmergencyClass,
		Confidence:       parsed.Confidence,
		UrgencyScore:     parsed.UrgencyScore,
		RecommendedSetup: parsed.RecommendedSetup,
		HospitalCode:     parsed.HospitalRouting.HospitalCode,
		RoutingRationale: parsed.HospitalRouting.Rationale,
		Raw:              raw,
	}, nil
}
