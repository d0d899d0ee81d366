package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/stadtwerke-wuelfrath/epilot-provisioner/internal/logger"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/pkg/epilot"
)

// Kind names an exportable configuration resource.
type Kind string

const (
	KindWorkflows   Kind = "workflows"
	KindAutomations Kind = "automations"
	KindJourneys    Kind = "journeys"
	KindBlueprints  Kind = "blueprints"
	KindDesigns     Kind = "designs"
)

// TimestampLayout is appended to default output paths.
const TimestampLayout = "20060102_150405"

// API is the subset of the platform API the exporter reads from.
type API interface {
	ListWorkflowDefinitions(ctx context.Context) ([]epilot.Object, error)
	GetWorkflowDefinition(ctx context.Context, id string) (epilot.Object, error)
	ListAutomationFlows(ctx context.Context) ([]epilot.Object, error)
	GetAutomationFlow(ctx context.Context, id string) (epilot.Object, error)
	SearchJourneys(ctx context.Context) ([]epilot.Object, error)
	GetJourney(ctx context.Context, id string) (epilot.Object, error)
	ListBlueprints(ctx context.Context) ([]epilot.Object, error)
	GetBlueprint(ctx context.Context, id string) (epilot.Object, error)
	ListDesigns(ctx context.Context) ([]epilot.Object, error)
	GetDesign(ctx context.Context, id string) (epilot.Object, error)
	SearchAll(ctx context.Context, query string, pageSize, limit int, progress func(fetched, total int)) ([]epilot.Object, error)
}

type kindDef struct {
	prefix   string
	list     func(ctx context.Context, api API) ([]epilot.Object, error)
	get      func(ctx context.Context, api API, id string) (epilot.Object, error)
	detailID func(obj epilot.Object) string
	extras   func(obj epilot.Object) map[string]any
}

var kinds = map[Kind]kindDef{
	KindWorkflows: {
		prefix: "workflow",
		list:   func(ctx context.Context, api API) ([]epilot.Object, error) { return api.ListWorkflowDefinitions(ctx) },
		get: func(ctx context.Context, api API, id string) (epilot.Object, error) {
			return api.GetWorkflowDefinition(ctx, id)
		},
		extras: func(obj epilot.Object) map[string]any {
			return map[string]any{
				"status":      obj["status"],
				"description": truncate(stringOf(obj["description"]), 100),
			}
		},
	},
	KindAutomations: {
		prefix: "automation",
		list:   func(ctx context.Context, api API) ([]epilot.Object, error) { return api.ListAutomationFlows(ctx) },
		get: func(ctx context.Context, api API, id string) (epilot.Object, error) {
			return api.GetAutomationFlow(ctx, id)
		},
		extras: func(obj epilot.Object) map[string]any {
			return map[string]any{
				"enabled":       obj["enabled"],
				"trigger_types": typesOf(obj["triggers"]),
				"action_types":  typesOf(obj["actions"]),
			}
		},
	},
	KindJourneys: {
		prefix: "journey",
		list:   func(ctx context.Context, api API) ([]epilot.Object, error) { return api.SearchJourneys(ctx) },
		get: func(ctx context.Context, api API, id string) (epilot.Object, error) {
			return api.GetJourney(ctx, id)
		},
		detailID: func(obj epilot.Object) string {
			if id := stringOf(obj["journey_id"]); id != "" {
				return id
			}
			return epilot.ResourceID(obj)
		},
		extras: func(obj epilot.Object) map[string]any {
			var blocks []any
			steps, _ := obj["steps"].([]any)
			for _, step := range steps {
				if m, ok := step.(map[string]any); ok {
					if b, ok := m["blocks"].([]any); ok {
						blocks = append(blocks, b...)
					}
				}
			}
			return map[string]any{
				"journey_id":  obj["journey_id"],
				"design_id":   obj["design_id"],
				"published":   obj["published"],
				"steps":       len(steps),
				"block_types": typesOf(blocks),
			}
		},
	},
	KindBlueprints: {
		prefix: "blueprint",
		list:   func(ctx context.Context, api API) ([]epilot.Object, error) { return api.ListBlueprints(ctx) },
		get: func(ctx context.Context, api API, id string) (epilot.Object, error) {
			return api.GetBlueprint(ctx, id)
		},
		extras: func(obj epilot.Object) map[string]any {
			return map[string]any{
				"version":        obj["version"],
				"resource_types": typesOf(obj["resources"]),
			}
		},
	},
	KindDesigns: {
		prefix: "design",
		list:   func(ctx context.Context, api API) ([]epilot.Object, error) { return api.ListDesigns(ctx) },
		get: func(ctx context.Context, api API, id string) (epilot.Object, error) {
			return api.GetDesign(ctx, id)
		},
	},
}

// Kinds lists the supported export kinds in a stable order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kinds))
	for k := range kinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseKind accepts a kind name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := kinds[k]; !ok {
		names := make([]string, 0, len(kinds))
		for _, known := range Kinds() {
			names = append(names, string(known))
		}
		return "", fmt.Errorf("unknown export kind %q (expected one of %s)", s, strings.Join(names, ", "))
	}
	return k, nil
}

// SummaryItem describes one exported resource.
type SummaryItem struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Filename  string         `json:"filename"`
	CreatedAt any            `json:"created_at"`
	UpdatedAt any            `json:"updated_at"`
	Details   map[string]any `json:"details,omitempty"`
}

// Summary is written next to the exported files as <kind>_summary.json.
type Summary struct {
	ExportedAt time.Time     `json:"exported_at"`
	Kind       Kind          `json:"kind"`
	Total      int           `json:"total"`
	Items      []SummaryItem `json:"items"`
}

// Result reports what an export run produced.
type Result struct {
	Kind           Kind
	Dir            string
	Total          int
	DetailFailures int
	SummaryPath    string
}

// Exporter writes platform configuration to local JSON files.
type Exporter struct {
	api API
	log logger.Logger
	now func() time.Time
}

// NewExporter builds an exporter over api.
func NewExporter(api API, log logger.Logger) *Exporter {
	return &Exporter{api: api, log: logger.Ensure(log), now: time.Now}
}

// Export lists every resource of kind, fetches its details (falling back to the
// list entry when that fails) and writes one file per resource plus a summary.
func (e *Exporter) Export(ctx context.Context, kind Kind, dir string) (Result, error) {
	def, ok := kinds[kind]
	if !ok {
		return Result{}, fmt.Errorf("unknown export kind %q", kind)
	}
	res := Result{Kind: kind, Dir: dir}

	items, err := def.list(ctx, e.api)
	if err != nil {
		return res, fmt.Errorf("export %s: %w", kind, err)
	}
	res.Total = len(items)
	if len(items) == 0 {
		e.log.WarnObj("nothing to export", "export", map[string]any{"kind": kind})
		return res, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return res, fmt.Errorf("create export directory: %w", err)
	}

	summary := Summary{ExportedAt: e.now(), Kind: kind, Total: len(items), Items: make([]SummaryItem, 0, len(items))}
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		id := epilot.ResourceID(item)
		detailID := id
		if def.detailID != nil {
			detailID = def.detailID(item)
		}
		if id == "" {
			id = fmt.Sprintf("unknown_%d", i+1)
		}

		full := item
		if detailID != "" {
			detail, err := def.get(ctx, e.api, detailID)
			if err != nil {
				res.DetailFailures++
				e.log.WarnObj("detail fetch failed, exporting list entry", "export_detail_error", map[string]any{
					"kind":  kind,
					"id":    detailID,
					"error": err.Error(),
				})
			} else {
				full = detail
			}
		}

		filename := fmt.Sprintf("%s_%s.json", def.prefix, sanitizeFilename(id))
		if err := WriteJSON(filepath.Join(dir, filename), full); err != nil {
			return res, err
		}

		name := epilot.ResourceName(full)
		if name == "" {
			name = "Untitled"
		}
		entry := SummaryItem{
			ID:        id,
			Name:      name,
			Filename:  filename,
			CreatedAt: firstOf(full, "_created_at", "created_at"),
			UpdatedAt: firstOf(full, "_updated_at", "updated_at"),
		}
		if def.extras != nil {
			entry.Details = def.extras(full)
		}
		summary.Items = append(summary.Items, entry)

		e.log.DebugObj("exported resource", "export_item", map[string]any{
			"kind":     kind,
			"index":    i + 1,
			"total":    len(items),
			"name":     name,
			"filename": filename,
		})
	}

	res.SummaryPath = filepath.Join(dir, string(kind)+"_summary.json")
	if err := WriteJSON(res.SummaryPath, summary); err != nil {
		return res, err
	}
	e.log.InfoObj("export completed", "export_summary", map[string]any{
		"kind":            kind,
		"dir":             dir,
		"total":           res.Total,
		"detail_failures": res.DetailFailures,
	})
	return res, nil
}

// WriteJSON writes v as 2-space indented JSON without escaping HTML or non-ASCII text.
func WriteJSON(path string, v any) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory for %s: %w", path, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// TimestampedPath inserts _YYYYMMDD_HHMMSS before the extension of path.
func TimestampedPath(path string, now time.Time) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + now.Format(TimestampLayout) + ext
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, s)
}

func firstOf(obj epilot.Object, keys ...string) any {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stringOf(v any) string {
	s, _ := v.(string)
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// typesOf returns the sorted distinct "type" values of a list of objects.
func typesOf(v any) []string {
	list, _ := v.([]any)
	seen := map[string]struct{}{}
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			if t := stringOf(m["type"]); t != "" {
				seen[t] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
