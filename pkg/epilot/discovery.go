package epilot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/stadtwerke-wuelfrath/epilot-provisioner/pkg/httpclient"
)

// APIInfo is one entry of the public API discovery document.
type APIInfo struct {
	Name    string `json:"name"`
	BaseURL string `json:"base_url"`
	SpecURL string `json:"spec_url,omitempty"`
}

type discoveryDocument struct {
	APIs []struct {
		Name       string `json:"name"`
		BaseURL    string `json:"baseURL"`
		Properties []struct {
			Type string `json:"type"`
			URL  string `json:"url"`
		} `json:"properties"`
	} `json:"apis"`
}

// Discoverer fetches the public discovery document without credentials.
type Discoverer struct {
	client *resty.Client
}

// NewDiscoverer builds a discoverer; timeout <= 0 uses the client default.
func NewDiscoverer(timeout time.Duration) *Discoverer {
	return &Discoverer{client: httpclient.NewRestyHTTPClient(timeout)}
}

// Discover lists the APIs advertised at url (DiscoveryURL when empty).
func (d *Discoverer) Discover(ctx context.Context, url string) ([]APIInfo, error) {
	if strings.TrimSpace(url) == "" {
		url = DiscoveryURL
	}

	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch api discovery document: %w", err)
	}

	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("api discovery returned status %d body: %s", resp.StatusCode(), snippet(body))
	}

	var doc discoveryDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode api discovery document: %w", err)
	}

	out := make([]APIInfo, 0, len(doc.APIs))
	for _, api := range doc.APIs {
		info := APIInfo{
			Name:    strings.TrimSpace(api.Name),
			BaseURL: strings.TrimSpace(api.BaseURL),
		}
		if info.Name == "" {
			info.Name = "Unknown"
		}
		for _, prop := range api.Properties {
			if prop.Type == "Swagger" {
				info.SpecURL = prop.URL
				break
			}
		}
		out = append(out, info)
	}
	return out, nil
}

func snippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
