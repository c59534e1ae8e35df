// Package http_request implements the "http_request" kind: one HTTP call per
// execution, with "${port}" references in the url, headers, params and body
// replaced by the node's input values.
package http_request

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/ctyval"
	"github.com/specialistvlad/gridflow/internal/model"
	"github.com/specialistvlad/gridflow/internal/registry"
	"github.com/specialistvlad/gridflow/internal/script"
	"github.com/zclconf/go-cty/cty"
)

var methods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete,
	http.MethodPatch, http.MethodHead, http.MethodOptions,
}

// Module implements the registry.Module interface for this package.
type Module struct {
	// Client is used for every request; http.DefaultClient's transport when nil.
	Client *http.Client
}

// Register registers the kind with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&Kind{client: m.Client})
}

// Config is the decoded node config.
type Config struct {
	URL         string            `mapstructure:"url"`
	Method      string            `mapstructure:"method"`
	Headers     map[string]string `mapstructure:"headers"`
	Params      map[string]string `mapstructure:"params"`
	ContentType string            `mapstructure:"content_type"`
	Body        string            `mapstructure:"body"`
	// JSON is encoded as the request body; mutually exclusive with Body.
	JSON           any           `mapstructure:"json"`
	Timeout        time.Duration `mapstructure:"timeout"`
	AllowRedirects *bool         `mapstructure:"allow_redirects"`
	// ReturnJSON parses the response body; the body port must then be
	// structured or dynamic.
	ReturnJSON bool `mapstructure:"return_json"`
}

// Kind is the "http_request" node kind.
type Kind struct {
	client *http.Client
}

func (k *Kind) Name() string { return "http_request" }

func (k *Kind) Ports(n *model.Node) ([]model.Port, []model.Port) {
	return nil, []model.Port{
		{ID: "status", Type: model.TypeNumber},
		{ID: "body", Type: model.TypeDynamic},
	}
}

func (k *Kind) Check(n *model.Node) error {
	cfg, err := decode(n)
	if err != nil {
		return err
	}
	if cfg.URL == "" {
		return errors.New("url is required")
	}
	if !slices.Contains(methods, cfg.method()) {
		return fmt.Errorf("unsupported method %q", cfg.Method)
	}
	if cfg.Body != "" && cfg.JSON != nil {
		return errors.New("body and json are mutually exclusive")
	}
	if cfg.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}

	refs := registry.References(cfg.URL)
	refs = append(refs, registry.References(cfg.Body)...)
	for _, m := range []map[string]string{cfg.Headers, cfg.Params} {
		for _, v := range m {
			refs = append(refs, registry.References(v)...)
		}
	}
	for _, ref := range refs {
		if _, ok := n.Input(ref); !ok {
			return fmt.Errorf("reference ${%s} does not name an input port", ref)
		}
	}
	return nil
}

// Timeout implements registry.Timeouter.
func (k *Kind) Timeout(n *model.Node) time.Duration {
	cfg, err := decode(n)
	if err != nil {
		return 0
	}
	return cfg.Timeout
}

func (k *Kind) Unit(n *model.Node, inputs map[string]cty.Value) (script.Unit, error) {
	cfg, err := decode(n)
	if err != nil {
		return nil, err
	}
	client := k.httpClient(cfg)

	return script.Func(func(ctx context.Context, inputs map[string]cty.Value) (map[string]cty.Value, error) {
		req, err := cfg.request(ctx, inputs)
		if err != nil {
			return nil, err
		}
		logger := ctxlog.FromContext(ctx)
		logger.Info("Making HTTP request.", "method", req.Method, "url", req.URL.Redacted())

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to execute request: %w", err)
		}
		defer resp.Body.Close()

		logger.Info("Received HTTP response.", "status", resp.Status)

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}

		body := cty.StringVal(string(raw))
		if cfg.ReturnJSON && len(bytes.TrimSpace(raw)) > 0 {
			if body, err = ctyval.FromJSON(raw); err != nil {
				return nil, fmt.Errorf("response body is not JSON: %w", err)
			}
		}

		out := make(map[string]cty.Value, 2)
		if _, ok := n.Output("status"); ok {
			out["status"] = cty.NumberIntVal(int64(resp.StatusCode))
		}
		if _, ok := n.Output("body"); ok {
			out["body"] = body
		}
		return out, nil
	}), nil
}

func (k *Kind) httpClient(cfg Config) *http.Client {
	base := k.client
	if base == nil {
		base = http.DefaultClient
	}
	if cfg.AllowRedirects == nil || *cfg.AllowRedirects {
		return base
	}
	c := *base
	c.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	return &c
}

func (c Config) method() string {
	if c.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(c.Method)
}

func (c Config) request(ctx context.Context, inputs map[string]cty.Value) (*http.Request, error) {
	u, err := url.Parse(registry.Substitute(c.URL, inputs))
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if len(c.Params) > 0 {
		q := u.Query()
		for k, v := range c.Params {
			q.Set(k, registry.Substitute(v, inputs))
		}
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	contentType := c.ContentType
	switch {
	case c.JSON != nil:
		raw, err := sonic.Marshal(c.JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to encode json body: %w", err)
		}
		body = bytes.NewReader(raw)
		if contentType == "" {
			contentType = "application/json"
		}
	case c.Body != "":
		body = strings.NewReader(registry.Substitute(c.Body, inputs))
	}

	req, err := http.NewRequestWithContext(ctx, c.method(), u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range c.Headers {
		req.Header.Set(k, registry.Substitute(v, inputs))
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

func decode(n *model.Node) (Config, error) {
	var cfg Config
	err := registry.DecodeConfig(n.Config, &cfg)
	return cfg, err
}
