package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/stadtwerke-wuelfrath/epilot-provisioner/pkg/epilot"
)

// contactFields are copied from each contact next to the entity metadata.
var contactFields = []string{
	"first_name", "last_name", "email", "phone",
	"salutation", "company", "street", "city",
	"postal_code", "country", "status",
}

// priorityColumns lead the CSV header in this order; the rest follow sorted.
var priorityColumns = []string{"id", "title", "first_name", "last_name", "email", "phone"}

// ExportContactsCSV pages through every contact (up to limit when positive)
// and writes them to path. It returns the number of rows written; no file is
// created when there are no contacts.
func (e *Exporter) ExportContactsCSV(ctx context.Context, path string, limit int) (int, error) {
	contacts, err := e.api.SearchAll(ctx, epilot.SchemaQuery("contact"), epilot.DefaultSearchPageSize, limit, func(fetched, total int) {
		e.log.DebugObj("fetched contacts page", "contacts_progress", map[string]any{
			"fetched": fetched,
			"total":   total,
		})
	})
	if err != nil {
		return 0, fmt.Errorf("fetch contacts: %w", err)
	}
	if len(contacts) == 0 {
		e.log.WarnObj("no contacts found", "contacts_export", map[string]any{"path": path})
		return 0, nil
	}

	rows := make([]map[string]string, 0, len(contacts))
	for _, c := range contacts {
		rows = append(rows, FlattenContact(c))
	}
	header := ContactColumns(rows)

	if err := writeCSV(path, header, rows); err != nil {
		return 0, err
	}
	e.log.InfoObj("contacts exported", "contacts_export", map[string]any{
		"path":    path,
		"rows":    len(rows),
		"columns": len(header),
	})
	return len(rows), nil
}

// FlattenContact turns a contact entity into CSV cells. Array fields take
// their first element: its email or phone for objects, the value itself otherwise.
func FlattenContact(c epilot.Object) map[string]string {
	out := map[string]string{
		"id":         cell(c["_id"]),
		"title":      cell(c["_title"]),
		"schema":     cell(c["_schema"]),
		"created_at": cell(c["_created_at"]),
		"updated_at": cell(c["_updated_at"]),
	}
	for _, field := range contactFields {
		out[field] = flattenValue(c[field])
	}
	return out
}

func flattenValue(v any) string {
	list, ok := v.([]any)
	if !ok {
		return cell(v)
	}
	if len(list) == 0 {
		return ""
	}
	if m, ok := list[0].(map[string]any); ok {
		for _, key := range []string{"email", "phone", "_email", "_phone"} {
			if val, ok := m[key]; ok {
				return cell(val)
			}
		}
		return fmt.Sprint(m)
	}
	return cell(list[0])
}

func cell(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return fmt.Sprint(typed)
	}
}

// ContactColumns returns the union of row keys with the priority columns first.
func ContactColumns(rows []map[string]string) []string {
	seen := map[string]struct{}{}
	for _, row := range rows {
		for k := range row {
			seen[k] = struct{}{}
		}
	}

	header := make([]string, 0, len(seen))
	for _, col := range priorityColumns {
		if _, ok := seen[col]; ok {
			header = append(header, col)
			delete(seen, col)
		}
	}
	rest := make([]string, 0, len(seen))
	for col := range seen {
		rest = append(rest, col)
	}
	sort.Strings(rest)
	return append(header, rest...)
}

func writeCSV(path string, header []string, rows []map[string]string) error {
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
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(header))
	for _, row := range rows {
		for i, col := range header {
			record[i] = row[col]
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return f.Close()
}
