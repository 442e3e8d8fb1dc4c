package exporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"skuforge/internal/model"
)

// FlatCSV 无模板导出：表头为所有记录 Base 键的并集（按首次出现顺序，单条记录内按字母序）
func FlatCSV(listings []model.Listing) ([]byte, error) {
	var columns []string
	seen := make(map[string]struct{})
	for _, l := range listings {
		keys := make([]string, 0, len(l.Base))
		for k := range l.Base {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			columns = append(columns, k)
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, l := range listings {
		row := make([]string, len(columns))
		for i, k := range columns {
			v, err := formatValue(l.Base[k])
			if err != nil {
				return nil, fmt.Errorf("listing %s field %s: %w", l.ID, k, err)
			}
			row[i] = v
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func formatValue(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(x), nil
	case json.Number:
		return x.String(), nil
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
