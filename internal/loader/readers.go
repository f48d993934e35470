package loader

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ashikshafi08/memorybench-sub000/internal/config"
)

// ReadRecords reads raw records from a local file in the declared format.
// Missing source files fail fast; malformed individual records are skipped
// and counted by the caller via the returned skip count.
func ReadRecords(path, format string) ([]Record, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open dataset %s: %w", path, err)
	}
	defer f.Close()

	switch format {
	case config.FormatLineDelim:
		return readJSONL(f.Name())
	case config.FormatRecordList, "":
		return readRecordArray(f.Name())
	case config.FormatTabular:
		return readTabular(f.Name())
	}
	return nil, 0, fmt.Errorf("unknown dataset format %q", format)
}

func readJSONL(path string) ([]Record, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	var records []Record
	skipped := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("scan %s: %w", path, err)
	}
	return records, skipped, nil
}

func readRecordArray(path string) ([]Record, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("parse record array %s: %w", path, err)
	}
	var records []Record
	skipped := 0
	for _, msg := range raw {
		var rec Record
		if err := json.Unmarshal(msg, &rec); err != nil {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

func readTabular(path string) ([]Record, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("parse csv %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, 0, nil
	}
	header := rows[0]
	var records []Record
	skipped := 0
	for _, row := range rows[1:] {
		if len(row) != len(header) {
			skipped++
			continue
		}
		rec := make(Record, len(header))
		for i, col := range header {
			rec[col] = row[i]
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}
