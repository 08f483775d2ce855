// SPDX-License-Identifier: EPL-2.0

// Package inference talks to the remote cough classification service.
//
// The service is a black box: it receives one audio file as the multipart
// field "file" and answers with symptom probabilities.
package inference

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/ik5/coughcap/media"
	"github.com/ik5/coughcap/metrics"
)

const (
	DefaultTimeout = 60 * time.Second
	DefaultPath    = "/predict"
	FileField      = "file"
)

type Symptom struct {
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
}

type Prediction struct {
	Symptoms         []Symptom `json:"symptoms"`
	HealthStatus     string    `json:"health_status"`
	Summary          string    `json:"summary"`
	Recommendations  []string  `json:"recommendations"`
	ProcessingTimeMs float64   `json:"processing_time_ms"`
}

// errorBody covers the two shapes services commonly use for errors.
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

type Options struct {
	Endpoint string
	Path     string
	Timeout  time.Duration
	Log      *zap.Logger
	Metrics  *metrics.Metrics
}

type Client struct {
	http    *resty.Client
	path    string
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewClient(opts Options) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, ErrNoEndpoint
	}
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(opts.Endpoint, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json")

	return &Client{
		http:    rc,
		path:    opts.Path,
		log:     opts.Log,
		metrics: opts.Metrics,
	}, nil
}

// Predict uploads f and decodes the service's answer.
func (c *Client) Predict(ctx context.Context, f media.File) (*Prediction, error) {
	start := time.Now()

	var (
		pred    Prediction
		errBody errorBody
	)

	resp, err := c.http.R().
		SetContext(ctx).
		SetMultipartField(FileField, f.Name, f.MIMEType, bytes.NewReader(f.Data)).
		SetResult(&pred).
		SetError(&errBody).
		Post(c.path)
	if err != nil {
		c.metrics.InferenceDone("error", time.Since(start))
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	if !resp.IsSuccess() {
		c.metrics.InferenceDone("api_error", time.Since(start))

		msg := errBody.Error
		if msg == "" {
			msg = errBody.Detail
		}
		if msg == "" {
			msg = strings.TrimSpace(string(resp.Body()))
		}

		c.log.Warn("inference rejected file",
			zap.String("name", f.Name),
			zap.Int("status", resp.StatusCode()),
			zap.String("message", msg))

		return nil, &APIError{StatusCode: resp.StatusCode(), Message: msg}
	}

	if len(resp.Body()) == 0 {
		c.metrics.InferenceDone("error", time.Since(start))
		return nil, ErrEmptyResponse
	}

	c.metrics.InferenceDone("ok", time.Since(start))
	c.log.Info("inference done",
		zap.String("name", f.Name),
		zap.String("health_status", pred.HealthStatus),
		zap.Int("symptoms", len(pred.Symptoms)),
		zap.Duration("latency", resp.Time()))

	return &pred, nil
}
