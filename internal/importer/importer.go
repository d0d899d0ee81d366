package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/stadtwerke-wuelfrath/epilot-provisioner/internal/batch"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/internal/logger"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/internal/storage"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/pkg/epilot"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/pkg/publishers"
)

const contactSchema = "contact"

// DefaultExamplePath is where the example customers file is written by default.
const DefaultExamplePath = "data/input/customers_example.csv"

// Columns is the header of customer CSV files.
var Columns = []string{"first_name", "last_name", "email", "phone"}

var validate = validator.New()

// Customer is one CSV row.
type Customer struct {
	Line      int    `validate:"-"`
	FirstName string `validate:"required_without_all=LastName Email"`
	LastName  string
	Email     string `validate:"omitempty,email"`
	Phone     string `validate:"omitempty,max=40"`
}

// Title is the display name of the contact.
func (c Customer) Title() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Validate checks that the row names someone and carries a well-formed email.
func (c Customer) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			switch fe.Tag() {
			case "required_without_all":
				return fmt.Errorf("line %d: a name or an email is required", c.Line)
			case "email":
				return fmt.Errorf("line %d: invalid email %q", c.Line, c.Email)
			default:
				return fmt.Errorf("line %d: %s failed %q validation", c.Line, strings.ToLower(fe.Field()), fe.Tag())
			}
		}
		return fmt.Errorf("line %d: %w", c.Line, err)
	}
	return nil
}

// Entity builds the contact entity payload.
func (c Customer) Entity() epilot.Object {
	email := []any{}
	if c.Email != "" {
		email = append(email, map[string]any{"_email": c.Email})
	}
	phone := []any{}
	if c.Phone != "" {
		phone = append(phone, map[string]any{"_phone": c.Phone})
	}
	return epilot.Object{
		"_schema":    contactSchema,
		"_title":     c.Title(),
		"first_name": c.FirstName,
		"last_name":  c.LastName,
		"email":      email,
		"phone":      phone,
	}
}

// ledgerKey identifies the customer across runs, by email when present.
func (c Customer) ledgerKey() string {
	if c.Email != "" {
		return storage.Key(contactSchema, c.Email)
	}
	return storage.Key(contactSchema, c.Title())
}

// ReadCustomers parses a customer CSV. Columns are matched by header name;
// unknown columns are ignored and missing ones stay empty.
func ReadCustomers(r io.Reader) ([]Customer, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("csv file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	known := 0
	for _, col := range Columns {
		if _, ok := idx[col]; ok {
			known++
		}
	}
	if known == 0 {
		return nil, fmt.Errorf("csv header %v has none of the columns %s", header, strings.Join(Columns, ","))
	}

	field := func(record []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var out []Customer
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		c := Customer{
			Line:      line,
			FirstName: field(record, "first_name"),
			LastName:  field(record, "last_name"),
			Email:     field(record, "email"),
			Phone:     field(record, "phone"),
		}
		if c == (Customer{Line: line}) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Creator creates platform entities.
type Creator interface {
	CreateEntity(ctx context.Context, schema string, entity epilot.Object) (epilot.Object, error)
}

// Notifier receives an event for every created contact.
type Notifier interface {
	Notify(ctx context.Context, evt publishers.Event)
}

// Deps wires the importer.
type Deps struct {
	API      Creator
	Runner   *batch.Runner
	Store    storage.Store
	Notifier Notifier
	Tenant   string
	Log      logger.Logger
}

// Importer creates contacts from customer CSV files.
type Importer struct {
	api    Creator
	runner *batch.Runner
	store  storage.Store
	notify Notifier
	tenant string
	log    logger.Logger
}

// New builds an importer. Store and Notifier are optional.
func New(d Deps) (*Importer, error) {
	if d.API == nil {
		return nil, errors.New("importer requires an API client")
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
	return &Importer{api: d.API, runner: runner, store: store, notify: d.Notifier, tenant: d.Tenant, log: log}, nil
}

// ImportFile reads path and imports every row.
func (im *Importer) ImportFile(ctx context.Context, path string) (batch.Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return batch.Summary{}, fmt.Errorf("open customers file: %w", err)
	}
	defer f.Close()

	customers, err := ReadCustomers(f)
	if err != nil {
		return batch.Summary{}, fmt.Errorf("%s: %w", path, err)
	}
	im.log.InfoObj("customers loaded", "import", map[string]any{"path": path, "rows": len(customers)})
	return im.Import(ctx, customers)
}

// Import creates one contact per customer in order. Invalid rows and failed
// calls are logged and counted; rows already in the ledger are skipped.
func (im *Importer) Import(ctx context.Context, customers []Customer) (batch.Summary, error) {
	items := make([]batch.Item, 0, len(customers))
	for _, c := range customers {
		c := c
		items = append(items, batch.Item{
			Key: fmt.Sprintf("line %d (%s)", c.Line, c.Title()),
			Run: func(ctx context.Context) error { return im.importOne(ctx, c) },
		})
	}
	return im.runner.Run(ctx, "import-customers", items)
}

func (im *Importer) importOne(ctx context.Context, c Customer) error {
	if err := c.Validate(); err != nil {
		return err
	}

	key := c.ledgerKey()
	if id, ok, err := im.store.Lookup(key); err != nil {
		im.log.WarnObj("ledger lookup failed", "ledger_error", map[string]any{"key": key, "error": err.Error()})
	} else if ok {
		im.log.InfoObj("customer already imported", "import_skip", map[string]any{"line": c.Line, "title": c.Title(), "id": id})
		return batch.ErrSkipped
	}

	created, err := im.api.CreateEntity(ctx, contactSchema, c.Entity())
	if err != nil {
		return err
	}
	id := epilot.ResourceID(created)
	im.log.InfoObj("customer created", "import_created", map[string]any{"line": c.Line, "title": c.Title(), "id": id})

	if id != "" {
		if err := im.store.Record(key, id); err != nil {
			im.log.WarnObj("ledger record failed", "ledger_error", map[string]any{"key": key, "error": err.Error()})
		}
	}
	if im.notify != nil {
		im.notify.Notify(ctx, publishers.NewEvent(publishers.OperationCreate, contactSchema, id, c.Title(), im.tenant))
	}
	return nil
}

// ExampleCustomers are written by WriteExampleCSV.
var ExampleCustomers = []Customer{
	{FirstName: "John", LastName: "Doe", Email: "john.doe@example.com", Phone: "+49 123 456789"},
	{FirstName: "Jane", LastName: "Smith", Email: "jane.smith@example.com", Phone: "+49 987 654321"},
	{FirstName: "Bob", LastName: "Johnson", Email: "bob.johnson@example.com", Phone: "+49 555 123456"},
}

// WriteExampleCSV writes a customer file with the example customers.
func WriteExampleCSV(path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory for %s: %w", path, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	records := [][]string{Columns}
	for _, c := range ExampleCustomers {
		records = append(records, []string{c.FirstName, c.LastName, c.Email, c.Phone})
	}
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
