package client

import (
	"context"
	"errors"

	"github.com/fivetwenty-io/gdapi/internal/constants"
	"github.com/fivetwenty-io/gdapi/internal/http"
	"github.com/fivetwenty-io/gdapi/pkg/gdapi"
)

func init() {
	gdapi.RegisterRequestor(gdapi.RequestClassHTTP, newHTTPRequestor)
}

// httpRequestor adapts the retryablehttp transport to gdapi.Requestor.
type httpRequestor struct {
	client *http.Client
}

func newHTTPRequestor(baseURL string, options *gdapi.Options) (gdapi.Requestor, error) {
	httpClient, err := http.NewHTTPClient(options)
	if err != nil {
		return nil, err
	}

	httpOpts := createHTTPClientOptions(options)
	httpOpts = append(httpOpts, http.WithHTTPClient(httpClient))

	return &httpRequestor{client: http.NewClient(baseURL, httpOpts...)}, nil
}

// createHTTPClientOptions builds HTTP client options from options.
func createHTTPClientOptions(options *gdapi.Options) []http.Option {
	var httpOpts []http.Option

	if options.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(options.Logger))
	}

	if options.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if options.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(options.UserAgent))
	}

	if len(options.Headers) > 0 {
		httpOpts = append(httpOpts, http.WithHeaders(options.Headers))
	}

	if options.Interceptors != nil {
		httpOpts = append(httpOpts, http.WithInterceptors(options.Interceptors))
	}

	if options.RetryMax > 0 {
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.DefaultRetryWaitMax

		if options.RetryWaitMin > 0 {
			retryWaitMin = options.RetryWaitMin
		}

		if options.RetryWaitMax > 0 {
			retryWaitMax = options.RetryWaitMax
		}

		httpOpts = append(httpOpts, http.WithRetryConfig(options.RetryMax, retryWaitMin, retryWaitMax))
	}

	return httpOpts
}

// Request performs the call. A non-2xx status is not an error here; the
// client decides what to do with it after classifying the body.
func (r *httpRequestor) Request(ctx context.Context, spec *gdapi.RequestSpec) (*gdapi.RawResponse, error) {
	resp, err := r.client.Do(ctx, &http.Request{
		Method:      spec.Method,
		Path:        spec.Path,
		Query:       spec.Query,
		Body:        spec.Body,
		ContentType: spec.ContentType,
	})
	if err != nil && (resp == nil || !errors.As(err, new(*http.ResponseError))) {
		return nil, err
	}

	return &gdapi.RawResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
	}, nil
}

func (r *httpRequestor) SetAuth(user, pass string) {
	r.client.SetAuth(user, pass)
}

func (r *httpRequestor) SetBaseURL(baseURL string) {
	r.client.SetBaseURL(baseURL)
}

func (r *httpRequestor) Meta() *gdapi.RequestMeta {
	return r.client.Meta()
}
