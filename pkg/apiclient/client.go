package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"github.com/fieldops/opsboard/pkg/composables"
)

var tracer = otel.Tracer("opsboard-apiclient")

// API is the remote REST collaborator. Every call resolves to a Response or fails
// with an error whose message is safe to show to the user.
type API interface {
	Get(ctx context.Context, path string) (*Response, error)
	Post(ctx context.Context, path string, body any) (*Response, error)
	Put(ctx context.Context, path string, body any) (*Response, error)
	Del(ctx context.Context, path string) (*Response, error)
	Upload(ctx context.Context, path string, form *MultipartForm) (*Response, error)
}

type Response struct {
	Status int
	Data   json.RawMessage
}

// Decode unmarshals the response body into v. A {"data": ...} envelope is unwrapped.
func (r *Response) Decode(v any) error {
	if r == nil || len(r.Data) == 0 {
		return errors.New("apiclient: empty response body")
	}
	return json.Unmarshal(unwrapData(r.Data), v)
}

func unwrapData(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return raw
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return raw
	}
	data, ok := envelope["data"]
	if !ok {
		return raw
	}
	inner := bytes.TrimSpace(data)
	if len(inner) > 0 && (inner[0] == '{' || inner[0] == '[') {
		return data
	}
	return raw
}

type Options struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logrus.Logger
}

type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	logger  *logrus.Logger
}

func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse api base url")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("apiclient: base url %q must be absolute", opts.BaseURL)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		baseURL: base,
		token:   opts.Token,
		http:    httpClient,
		logger:  logger,
	}, nil
}

func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil, "")
}

func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.doJSON(ctx, http.MethodPost, path, body)
}

func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.doJSON(ctx, http.MethodPut, path, body)
}

func (c *Client) Del(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, http.MethodDelete, path, nil, "")
}

// MultipartForm describes a single-file multipart submission.
type MultipartForm struct {
	FileField string
	FileName  string
	MIMEType  string
	File      io.Reader
	Fields    map[string]string
}

func (c *Client) Upload(ctx context.Context, path string, form *MultipartForm) (*Response, error) {
	if form == nil || form.File == nil {
		return nil, errors.New("apiclient: upload requires a file")
	}
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for key, value := range form.Fields {
		if err := mw.WriteField(key, value); err != nil {
			return nil, errors.Wrap(err, "write multipart field")
		}
	}
	field := form.FileField
	if field == "" {
		field = "file"
	}
	part, err := mw.CreatePart(fileHeader(field, form.FileName, form.MIMEType))
	if err != nil {
		return nil, errors.Wrap(err, "create multipart file part")
	}
	if _, err := io.Copy(part, form.File); err != nil {
		return nil, errors.Wrap(err, "copy upload body")
	}
	if err := mw.Close(); err != nil {
		return nil, errors.Wrap(err, "close multipart writer")
	}
	return c.do(ctx, http.MethodPost, path, buf, mw.FormDataContentType())
}

func fileHeader(field, fileName, mimeType string) map[string][]string {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	escaper := strings.NewReplacer("\\", "\\\\", `"`, "\\\"")
	return map[string][]string{
		"Content-Disposition": {fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escaper.Replace(field), escaper.Replace(fileName))},
		"Content-Type":        {mimeType},
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any) (*Response, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encode request body")
		}
		reader = bytes.NewReader(encoded)
	}
	return c.do(ctx, method, path, reader, "application/json")
}

func (c *Client) resolve(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", errors.Wrapf(err, "parse path %q", path)
	}
	u := *c.baseURL
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + "/" + strings.TrimLeft(ref.Path, "/")
	u.RawQuery = ref.RawQuery
	return u.String(), nil
}

// httpClientFor returns a client that authenticates with the caller's token when the
// incoming request carried one, and with the configured service token otherwise.
func (c *Client) httpClientFor(ctx context.Context) *http.Client {
	token, ok := composables.UseToken(ctx)
	if !ok {
		token = c.token
	}
	if token == "" {
		return c.http
	}
	base := context.WithValue(context.Background(), oauth2.HTTPClient, c.http)
	client := oauth2.NewClient(base, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	client.Timeout = c.http.Timeout
	return client
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*Response, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	target, err := c.resolve(path)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "apiclient."+strings.ToLower(method),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.path", path),
		),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" && body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if id := composables.UseRequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.httpClientFor(ctx).Do(req)
	if err != nil {
		recordRequest(method, 0, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.WithError(cerr).Debug("apiclient: failed to close response body")
		}
	}()

	data, err := io.ReadAll(resp.Body)
	recordRequest(method, resp.StatusCode, time.Since(start))
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			Status:  resp.StatusCode,
			Method:  method,
			Path:    path,
			Message: messageFromBody(resp.StatusCode, data),
		}
		span.SetStatus(codes.Error, apiErr.Message)
		composables.UseLogger(ctx).WithFields(logrus.Fields{
			"api-method": method,
			"api-path":   path,
			"api-status": resp.StatusCode,
		}).Warn("remote api returned an error")
		return nil, apiErr
	}
	return &Response{Status: resp.StatusCode, Data: data}, nil
}
