package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/appplane-client/internal/constants"
	"github.com/fivetwenty-io/appplane-client/pkg/appplane"
)

// render writes value in format. Tables show objects as property rows and
// lists as one row per item.
func render(w io.Writer, format string, value interface{}) error {
	switch format {
	case constants.FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		return encoder.Encode(value)
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(w)

		err := encoder.Encode(value)
		if err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}

		return encoder.Close()
	case constants.FormatTable:
		switch typed := value.(type) {
		case map[string]interface{}:
			return renderProperties(w, typed)
		case []interface{}:
			return renderRows(w, typed, nil)
		default:
			_, err := fmt.Fprintln(w, cell(value))

			return err
		}
	default:
		return fmt.Errorf("%w: %s", constants.ErrUnsupportedFormat, format)
	}
}

// renderResponse prints the payload of a successful response. Bodies that
// are not JSON are written as received.
func renderResponse(w io.Writer, format string, resp *appplane.Response) error {
	if resp.Empty() {
		return nil
	}

	var payload interface{}

	err := json.Unmarshal(resp.Body, &payload)
	if err != nil {
		_, err = w.Write(resp.Body)

		return err
	}

	return render(w, format, payload)
}

func renderProperties(w io.Writer, properties map[string]interface{}) error {
	keys := make([]string, 0, len(properties))
	for key := range properties {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{key, cell(properties[key])})
	}

	return renderTable(w, []string{"Property", "Value"}, rows)
}

func renderTable(w io.Writer, headers []string, rows [][]string) error {
	header := make([]interface{}, len(headers))
	for i, name := range headers {
		header[i] = name
	}

	table := tablewriter.NewWriter(w)
	table.Header(header...)

	for _, row := range rows {
		_ = table.Append(row)
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

// renderRows prints one row per item. Without columns, the sorted union
// of the items' keys is used.
func renderRows(w io.Writer, items []interface{}, columns []string) error {
	if len(columns) == 0 {
		columns = itemKeys(items)
	}

	if len(columns) == 0 {
		for _, item := range items {
			_, err := fmt.Fprintln(w, cell(item))
			if err != nil {
				return err
			}
		}

		return nil
	}

	rows := make([][]string, 0, len(items))

	for _, item := range items {
		fields, _ := item.(map[string]interface{})

		row := make([]string, len(columns))
		for i, column := range columns {
			row[i] = cell(fields[column])
		}

		rows = append(rows, row)
	}

	return renderTable(w, columns, rows)
}

func itemKeys(items []interface{}) []string {
	seen := make(map[string]struct{})

	for _, item := range items {
		fields, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		for key := range fields {
			seen[key] = struct{}{}
		}
	}

	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

func cell(value interface{}) string {
	switch typed := value.(type) {
	case nil:
		return constants.NotAvailable
	case string:
		return typed
	case bool:
		return strconv.FormatBool(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprint(typed)
		}

		return string(encoded)
	}
}
