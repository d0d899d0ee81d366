package epilot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Well-known service ids.
const (
	ServiceEntity            = "entity"
	ServiceAutomation        = "automation"
	ServiceWorkflowDef       = "workflow-definition"
	ServiceWorkflowExecution = "workflow-execution"
	ServiceJourney           = "journey"
	ServiceBlueprint         = "blueprint"
	ServiceDesign            = "design"
)

// DiscoveryURL lists every public epilot API. It needs no authentication.
const DiscoveryURL = "https://docs.epilot.io/openapi-specs/apis.json"

// Service is one externally hosted REST service.
type Service struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	BaseURL     string `json:"base_url" yaml:"base_url"`
	Description string `json:"description" yaml:"description"`
}

var defaultServices = []Service{
	{ID: ServiceEntity, Name: "Entity API", BaseURL: "https://entity.sls.epilot.io"},
	{ID: ServiceAutomation, Name: "Automation API", BaseURL: "https://automation.sls.epilot.io"},
	{ID: ServiceWorkflowDef, Name: "Workflow Definitions API", BaseURL: "https://workflows-definition.sls.epilot.io"},
	{ID: ServiceWorkflowExecution, Name: "Workflow Execution API", BaseURL: "https://workflows-execution.sls.epilot.io"},
	{ID: ServiceJourney, Name: "Journey Config API", BaseURL: "https://journey-config.sls.epilot.io"},
	{ID: ServiceBlueprint, Name: "Blueprint Manifest API", BaseURL: "https://blueprint-manifest.sls.epilot.io"},
	{ID: ServiceDesign, Name: "Design Builder API", BaseURL: "https://design-builder-api.sls.epilot.io"},
	{ID: "user", Name: "User API", BaseURL: "https://user.sls.epilot.io"},
	{ID: "customer", Name: "Customer Portal API", BaseURL: "https://customer.sls.epilot.io"},
	{ID: "order", Name: "Order API", BaseURL: "https://order.sls.epilot.io"},
	{ID: "product", Name: "Product API", BaseURL: "https://product.sls.epilot.io"},
	{ID: "pricing", Name: "Pricing API", BaseURL: "https://pricing.sls.epilot.io"},
	{ID: "message", Name: "Message API", BaseURL: "https://message.sls.epilot.io"},
	{ID: "file", Name: "File API", BaseURL: "https://file.sls.epilot.io"},
	{ID: "organization", Name: "Organization API", BaseURL: "https://organization.sls.epilot.io"},
}

type catalogFile struct {
	Services []Service `json:"services" yaml:"services"`
}

// Catalog resolves service ids to base URLs.
type Catalog struct {
	mu  sync.RWMutex
	idx map[string]Service
}

// DefaultCatalog returns the built-in service catalog.
func DefaultCatalog() *Catalog {
	c := &Catalog{idx: make(map[string]Service, len(defaultServices))}
	for _, s := range defaultServices {
		c.idx[s.ID] = s
	}
	return c
}

// LoadCatalog overlays the services declared in a YAML/JSON file on the defaults.
// An empty path returns the defaults.
func LoadCatalog(path string) (*Catalog, error) {
	c := DefaultCatalog()
	path = strings.TrimSpace(path)
	if path == "" {
		return c, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open services file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read services file: %w", err)
	}

	var parsed catalogFile
	if err := DecodeDocument(raw, filepath.Ext(path), &parsed); err != nil {
		return nil, fmt.Errorf("decode services file: %w", err)
	}
	if len(parsed.Services) == 0 {
		return nil, errors.New("services file contains no services entries")
	}

	seen := make(map[string]struct{}, len(parsed.Services))
	for i := range parsed.Services {
		s := sanitizeService(parsed.Services[i])
		if err := validateService(s); err != nil {
			return nil, fmt.Errorf("services[%d]: %w", i, err)
		}
		if _, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("duplicate service id %q", s.ID)
		}
		seen[s.ID] = struct{}{}
		c.idx[s.ID] = s
	}
	return c, nil
}

func sanitizeService(s Service) Service {
	s.ID = strings.ToLower(strings.TrimSpace(s.ID))
	s.Name = strings.TrimSpace(s.Name)
	s.BaseURL = strings.TrimRight(strings.TrimSpace(s.BaseURL), "/")
	s.Description = strings.TrimSpace(s.Description)
	if s.Name == "" {
		s.Name = s.ID
	}
	return s
}

func validateService(s Service) error {
	if s.ID == "" {
		return errors.New("id is required")
	}
	if s.BaseURL == "" {
		return fmt.Errorf("base_url is required for service %q", s.ID)
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url for service %q: %w", s.ID, err)
	}
	if (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("base_url for service %q must be an absolute http(s) url", s.ID)
	}
	return nil
}

// Register adds or replaces a service after sanitizing and validating it.
func (c *Catalog) Register(s Service) error {
	s = sanitizeService(s)
	if err := validateService(s); err != nil {
		return err
	}
	c.mu.Lock()
	c.idx[s.ID] = s
	c.mu.Unlock()
	return nil
}

// Service returns the service registered under id.
func (c *Catalog) Service(id string) (Service, bool) {
	if c == nil {
		return Service{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.idx[strings.ToLower(strings.TrimSpace(id))]
	return s, ok
}

// All returns every service sorted by id.
func (c *Catalog) All() []Service {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	out := make([]Service, 0, len(c.idx))
	for _, s := range c.idx {
		out = append(out, s)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// URL joins the service base URL with path segments. Segments are escaped;
// a segment may contain "/" to express a multi-part versioned path, but "."
// and ".." elements are rejected so a segment cannot climb out of its prefix.
func (c *Catalog) URL(serviceID string, segments ...string) (string, error) {
	s, ok := c.Service(serviceID)
	if !ok {
		return "", fmt.Errorf("unknown service %q", serviceID)
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url for %q: %w", serviceID, err)
	}
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		seg = strings.Trim(seg, "/")
		if seg == "" {
			continue
		}
		for _, elem := range strings.Split(seg, "/") {
			if elem == "." || elem == ".." {
				return "", fmt.Errorf("invalid path segment %q for %q", seg, serviceID)
			}
		}
		parts = append(parts, seg)
	}
	return u.JoinPath(parts...).String(), nil
}

// DecodeDocument decodes YAML or JSON into out, picking the decoder from ext
// and trying both when ext is unknown.
func DecodeDocument(data []byte, ext string, out any) error {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  []string
		fn   func([]byte, any) error
	}{
		{name: "json", ext: []string{".json"}, fn: json.Unmarshal},
		{name: "yaml", ext: []string{".yaml", ".yml"}, fn: yaml.Unmarshal},
	}

	known := false
	for _, d := range decoders {
		for _, e := range d.ext {
			if e == ext {
				known = true
			}
		}
	}

	var errs []error
	for _, d := range decoders {
		if known && !containsString(d.ext, ext) {
			continue
		}
		if err := d.fn(data, out); err != nil {
			errs = append(errs, fmt.Errorf("decode %s: %w", d.name, err))
			continue
		}
		return nil
	}
	return errors.Join(errs...)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
