// Package api is the REST client for the learning-management backend.
//
// Every authenticated call takes an explicit session.Credential; the client
// holds no ambient token. Requests are validated before they leave the
// process, tagged with an X-Request-ID, timed into pkg/metrics and logged.
package api

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vanderheijden86/coursework/pkg/logger"
	"github.com/vanderheijden86/coursework/pkg/metrics"
	"github.com/vanderheijden86/coursework/pkg/session"
	"github.com/vanderheijden86/coursework/pkg/version"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the learning API.
type Client struct {
	rc       *resty.Client
	validate *validator.Validate
}

type opKey struct{}

// operation names one API call for logs and metrics.
type operation struct {
	name     string
	fallback string
	metric   *metrics.TimingMetric
}

// New returns a Client rooted at opts.BaseURL.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "cw/"+version.Version).
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)

	rc.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		if r.Header.Get(RequestIDHeader) == "" {
			r.SetHeader(RequestIDHeader, uuid.NewString())
		}
		return nil
	})
	rc.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		op, _ := resp.Request.Context().Value(opKey{}).(operation)
		if op.metric != nil {
			op.metric.Record(resp.Time())
			if resp.IsError() {
				op.metric.RecordFailure()
			}
		}
		logger.Logger.Debug("api response",
			zap.String("op", op.name),
			zap.String("method", resp.Request.Method),
			zap.String("url", resp.Request.URL),
			zap.Int("status", resp.StatusCode()),
			zap.Duration("elapsed", resp.Time()),
			zap.String("request_id", resp.Request.Header.Get(RequestIDHeader)),
		)
		return nil
	})
	rc.OnError(func(r *resty.Request, err error) {
		op, _ := r.Context().Value(opKey{}).(operation)
		if op.metric != nil {
			op.metric.RecordFailure()
		}
		logger.Logger.Warn("api request failed",
			zap.String("op", op.name),
			zap.String("method", r.Method),
			zap.String("url", r.URL),
			zap.String("request_id", r.Header.Get(RequestIDHeader)),
			zap.Error(err),
		)
	})

	return &Client{rc: rc, validate: requestValidator}
}

// requestValidator is shared by every Client; validator caches struct
// metadata and is safe for concurrent use.
var requestValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("form"); name != "" {
			return name
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string {
	return c.rc.BaseURL
}

func (c *Client) request(ctx context.Context, cred *session.Credential, op operation) *resty.Request {
	if ctx == nil {
		ctx = context.Background()
	}
	r := c.rc.R().SetContext(context.WithValue(ctx, opKey{}, op))
	if cred != nil && cred.Token != "" {
		r.SetAuthToken(cred.Token)
	}
	return r
}

func (c *Client) check(v any) error {
	if err := c.validate.Struct(v); err != nil {
		return newValidationError(err)
	}
	return nil
}

// finish converts a resty result into either a decoded body or an *Error.
func finish(op operation, resp *resty.Response, err error, out any) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op.fallback, err)
	}
	if resp.IsError() {
		return apiError(op, resp)
	}
	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", op.fallback, err)
	}
	return nil
}

func apiError(op operation, resp *resty.Response) *Error {
	e := &Error{
		Op:        op.name,
		Status:    resp.StatusCode(),
		Message:   op.fallback,
		RequestID: resp.Request.Header.Get(RequestIDHeader),
	}
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(resp.Body(), &body) == nil {
		switch {
		case body.Message != "":
			e.Message = body.Message
		case body.Error != "":
			e.Message = body.Error
		}
	}
	return e
}
