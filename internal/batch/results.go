package batch

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/shehryarbajwa/gridstatus/pkg/models"
)

// ReadResults parses a JSON array of test results or one JSON object per line.
func ReadResults(r io.Reader) ([]models.TestResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var results []models.TestResult
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &results); err != nil {
			return nil, fmt.Errorf("failed to parse results array: %w", err)
		}
	} else {
		scanner := bufio.NewScanner(bytes.NewReader(trimmed))
		for line := 1; scanner.Scan(); line++ {
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			var tr models.TestResult
			if err := json.Unmarshal([]byte(text), &tr); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			results = append(results, tr)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to scan results: %w", err)
		}
	}

	for i := range results {
		if results[i].Outcome == "" {
			results[i].Outcome = models.OutcomeUnknown
		}
	}
	return results, nil
}
