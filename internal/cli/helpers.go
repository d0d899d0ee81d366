package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/stadtwerke-wuelfrath/epilot-provisioner/internal/batch"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/pkg/epilot"
)

// readDefinition loads a YAML or JSON object from path.
func readDefinition(path string) (epilot.Object, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}
	var obj epilot.Object
	if err := epilot.DecodeDocument(raw, filepath.Ext(path), &obj); err != nil {
		return nil, fmt.Errorf("decode definition %s: %w", path, err)
	}
	if len(obj) == 0 {
		return nil, fmt.Errorf("definition %s is empty", path)
	}
	return obj, nil
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// resourceRows renders id, name and the given extra fields of each object.
func resourceRows(items []epilot.Object, fields ...string) [][]string {
	rows := make([][]string, len(items))
	for i, item := range items {
		row := []string{epilot.ResourceID(item), epilot.ResourceName(item)}
		for _, f := range fields {
			row = append(row, str(item[f]))
		}
		rows[i] = row
	}
	return rows
}

// printSummary reports a batch and fails when nothing went through.
func printSummary(out *Output, name string, sum batch.Summary) error {
	out.Print(
		[]string{"BATCH", "TOTAL", "CREATED", "SKIPPED", "FAILED"},
		[][]string{{name, strconv.Itoa(sum.Total), strconv.Itoa(sum.Succeeded), strconv.Itoa(sum.Skipped), strconv.Itoa(sum.Failed)}},
		map[string]any{
			"batch":     name,
			"total":     sum.Total,
			"created":   sum.Succeeded,
			"skipped":   sum.Skipped,
			"failed":    sum.Failed,
			"cancelled": sum.Cancelled,
		},
	)
	if sum.Cancelled {
		return fmt.Errorf("%s cancelled", name)
	}
	if sum.Total > 0 && sum.Succeeded+sum.Skipped == 0 {
		return fmt.Errorf("%s: all %d items failed", name, sum.Total)
	}
	if sum.Failed > 0 {
		out.Warn(fmt.Sprintf("%d of %d items failed, see log for details", sum.Failed, sum.Total))
	}
	return nil
}
