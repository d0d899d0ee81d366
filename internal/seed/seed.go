package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/stadtwerke-wuelfrath/epilot-provisioner/internal/batch"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/internal/export"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/internal/logger"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/internal/storage"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/pkg/epilot"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/pkg/publishers"
)

const (
	fallbackSchema = "contact"
	// LinksKey holds relation fields that reference other seeded entities by title.
	LinksKey = "$links"
)

// GroupSchemas maps the demo data groups to their entity schema.
var GroupSchemas = map[string]string{
	"produkte":  "product",
	"kunden":    "contact",
	"chancen":   "opportunity",
	"auftraege": "order",
}

// groupOrder creates entities before the groups that link to them.
var groupOrder = []string{"produkte", "kunden", "chancen", "auftraege"}

// Data is a seed file: group name to entity objects.
type Data map[string][]epilot.Object

// Load reads a JSON or YAML seed file.
func Load(path string) (Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var data Data
	if err := epilot.DecodeDocument(raw, filepath.Ext(path), &data); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("seed file %s contains no groups", path)
	}
	return data, nil
}

// Groups returns the group names in creation order.
func (d Data) Groups() []string {
	out := make([]string, 0, len(d))
	for _, g := range groupOrder {
		if _, ok := d[g]; ok {
			out = append(out, g)
		}
	}
	rest := make([]string, 0, len(d))
	for g := range d {
		if _, known := GroupSchemas[g]; !known {
			rest = append(rest, g)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// Creator creates platform entities.
type Creator interface {
	CreateEntity(ctx context.Context, schema string, entity epilot.Object) (epilot.Object, error)
}

// Notifier receives an event for every created entity.
type Notifier interface {
	Notify(ctx context.Context, evt publishers.Event)
}

// Deps wires the seeder.
type Deps struct {
	API      Creator
	Runner   *batch.Runner
	Store    storage.Store
	Notifier Notifier
	Tenant   string
	Log      logger.Logger
}

// GroupResult is the outcome of one group.
type GroupResult struct {
	Group   string
	Schema  string
	Summary batch.Summary
	IDs     map[string]string
	File    string
}

// IDsFile is written per group as <group>_ids.json.
type IDsFile struct {
	CreatedAt time.Time         `json:"created_at"`
	Count     int               `json:"count"`
	IDs       map[string]string `json:"ids"`
}

// Seeder creates demo entities group by group.
type Seeder struct {
	api    Creator
	runner *batch.Runner
	store  storage.Store
	notify Notifier
	tenant string
	log    logger.Logger
	now    func() time.Time
}

// New builds a seeder. Store and Notifier are optional.
func New(d Deps) (*Seeder, error) {
	if d.API == nil {
		return nil, errors.New("seeder requires an API client")
	}
	log := logger.Ensure(d.Log)
	runner := d.Runner
	if runner == nil {
		runner = batch.NewRunner(0, log)
	}
	store := d.Store
	if store == nil {
		var err error
		if store, err = storage.NewStore("none", "", storage.Options{}); err != nil {
			return nil, err
		}
	}
	return &Seeder{api: d.API, runner: runner, store: store, notify: d.Notifier, tenant: d.Tenant, log: log, now: time.Now}, nil
}

// Run creates every group of data in order and writes the title to id map of
// each group to outDir. Item failures are logged and returned joined; they
// never stop the run. Cancellation does.
func (s *Seeder) Run(ctx context.Context, data Data, outDir string) ([]GroupResult, error) {
	titles := titleIndex{}
	results := make([]GroupResult, 0, len(data))
	var errs []error

	for _, group := range data.Groups() {
		res := GroupResult{Group: group, Schema: GroupSchemas[group], IDs: map[string]string{}}
		if res.Schema == "" {
			res.Schema = fallbackSchema
		}

		objects := data[group]
		items := make([]batch.Item, 0, len(objects))
		for i, obj := range objects {
			obj := obj
			title := titleOf(obj, group, i+1)
			schema := schemaOf(obj, res.Schema)
			items = append(items, batch.Item{
				Key: group + "/" + title,
				Run: func(ctx context.Context) error {
					id, err := s.createOne(ctx, schema, title, obj, titles)
					if id != "" {
						res.IDs[title] = id
						titles.add(schema, title, id)
					}
					return err
				},
			})
		}

		sum, err := s.runner.Run(ctx, "seed-"+group, items)
		res.Summary = sum
		if err != nil {
			errs = append(errs, err)
		}

		if outDir != "" && len(res.IDs) > 0 {
			res.File = filepath.Join(outDir, group+"_ids.json")
			out := IDsFile{CreatedAt: s.now(), Count: len(res.IDs), IDs: res.IDs}
			if werr := export.WriteJSON(res.File, out); werr != nil {
				errs = append(errs, werr)
			}
		}
		results = append(results, res)

		if sum.Cancelled {
			return results, errors.Join(errs...)
		}
	}
	return results, errors.Join(errs...)
}

// createOne returns the entity id, also when it was already provisioned.
func (s *Seeder) createOne(ctx context.Context, schema, title string, obj epilot.Object, titles titleIndex) (string, error) {
	key := storage.Key("seed", schema, title)
	if id, ok, err := s.store.Lookup(key); err != nil {
		s.log.WarnObj("ledger lookup failed", "ledger_error", map[string]any{"key": key, "error": err.Error()})
	} else if ok {
		s.log.InfoObj("entity already seeded", "seed_skip", map[string]any{"schema": schema, "title": title, "id": id})
		return id, batch.ErrSkipped
	}

	payload, err := buildPayload(obj, schema, title, titles)
	if err != nil {
		s.log.WarnObj("unresolved link, skipping entity", "seed_skip", map[string]any{"schema": schema, "title": title, "error": err.Error()})
		return "", fmt.Errorf("%w: %v", batch.ErrSkipped, err)
	}

	created, err := s.api.CreateEntity(ctx, schema, payload)
	if err != nil {
		return "", err
	}
	id := epilot.ResourceID(created)
	s.log.InfoObj("entity seeded", "seed_created", map[string]any{"schema": schema, "title": title, "id": id})

	if id != "" {
		if err := s.store.Record(key, id); err != nil {
			s.log.WarnObj("ledger record failed", "ledger_error", map[string]any{"key": key, "error": err.Error()})
		}
	}
	if s.notify != nil {
		s.notify.Notify(ctx, publishers.NewEvent(publishers.OperationCreate, schema, id, title, s.tenant))
	}
	return id, nil
}

// titleIndex maps title to schema to the id seeded under it. Titles may repeat
// across schemas; a link then has to name the schema as "schema:title".
type titleIndex map[string]map[string]string

func (t titleIndex) add(schema, title, id string) {
	title = strings.TrimSpace(title)
	if t[title] == nil {
		t[title] = map[string]string{}
	}
	t[title][strings.ToLower(strings.TrimSpace(schema))] = id
}

func (t titleIndex) resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if schema, title, ok := strings.Cut(ref, ":"); ok {
		if id, ok := t[strings.TrimSpace(title)][strings.ToLower(strings.TrimSpace(schema))]; ok {
			return id, nil
		}
	}

	bySchema := t[ref]
	switch len(bySchema) {
	case 0:
		return "", fmt.Errorf("%q not found", ref)
	case 1:
		for _, id := range bySchema {
			return id, nil
		}
	}
	schemas := make([]string, 0, len(bySchema))
	for schema := range bySchema {
		schemas = append(schemas, schema)
	}
	sort.Strings(schemas)
	return "", fmt.Errorf("%q is ambiguous across %s, use schema:title", ref, strings.Join(schemas, ", "))
}

// buildPayload copies obj, sets schema and title, and turns $links into
// relation attributes.
func buildPayload(obj epilot.Object, schema, title string, titles titleIndex) (epilot.Object, error) {
	payload := make(epilot.Object, len(obj)+2)
	for k, v := range obj {
		if k == LinksKey || k == "titel" {
			continue
		}
		payload[k] = v
	}
	payload["_schema"] = schema
	payload["_title"] = title

	links, _ := obj[LinksKey].(map[string]any)
	fields := make([]string, 0, len(links))
	for field := range links {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		var refs []string
		switch v := links[field].(type) {
		case string:
			refs = []string{v}
		case []any:
			for _, item := range v {
				if str, ok := item.(string); ok {
					refs = append(refs, str)
				}
			}
		}
		targets := make([]any, 0, len(refs))
		for _, ref := range refs {
			id, err := titles.resolve(ref)
			if err != nil {
				return nil, fmt.Errorf("link %s: %w", field, err)
			}
			targets = append(targets, map[string]any{"entity_id": id})
		}
		if len(targets) > 0 {
			payload[field] = []any{map[string]any{"$relation": targets}}
		}
	}
	return payload, nil
}

func titleOf(obj epilot.Object, group string, n int) string {
	for _, k := range []string{"_title", "titel", "name"} {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return fmt.Sprintf("%s %d", group, n)
}

func schemaOf(obj epilot.Object, def string) string {
	if s, ok := obj["_schema"].(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	return def
}
