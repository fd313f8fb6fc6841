// Package labelparser reads model-produced event labels, one JSON object per line:
//
//	{"model-name": "cnn_v2", "name": "cavity", "value": "3", "confidence": 0.87}
package labelparser

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jlab/wfbrowser/internal/model"
)

// ReadResult contains the outcome of a label import.
type ReadResult struct {
	Labels []model.Label
	Count  int
}

type labelLine struct {
	ModelName  string      `json:"model-name"`
	Name       string      `json:"name"`
	Value      interface{} `json:"value"`
	Confidence *float64    `json:"confidence"`
}

// ValidateFile checks that the first non-empty line of path is a label object.
func ValidateFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		_, err := parseLine(line)
		return err
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	return fmt.Errorf("empty file: %w", model.ErrMalformedInput)
}

// ReadFile reads every label in path.
func ReadFile(path string) (*ReadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read reads labels from r. Blank lines are skipped; any other line that is
// not a valid label fails the whole read.
func Read(r io.Reader) (*ReadResult, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	result := &ReadResult{}
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		l, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		result.Labels = append(result.Labels, l)
		result.Count++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading labels at line %d: %w", lineNum, err)
	}
	return result, nil
}

func parseLine(line string) (model.Label, error) {
	if line[0] != '{' {
		return model.Label{}, fmt.Errorf("not a JSON object: %w", model.ErrMalformedInput)
	}
	var ll labelLine
	if err := json.Unmarshal([]byte(line), &ll); err != nil {
		return model.Label{}, fmt.Errorf("invalid JSON: %v: %w", err, model.ErrMalformedInput)
	}

	value := interfaceToString(ll.Value)
	switch {
	case ll.ModelName == "":
		return model.Label{}, fmt.Errorf("missing model-name: %w", model.ErrMalformedInput)
	case ll.Name == "":
		return model.Label{}, fmt.Errorf("missing name: %w", model.ErrMalformedInput)
	case value == "":
		return model.Label{}, fmt.Errorf("missing value for %s: %w", ll.Name, model.ErrMalformedInput)
	}
	if c := ll.Confidence; c != nil && (*c < 0 || *c > 1) {
		return model.Label{}, fmt.Errorf("confidence %v outside [0,1]: %w", *c, model.ErrMalformedInput)
	}

	return model.Label{
		ModelName:  ll.ModelName,
		Name:       ll.Name,
		Value:      value,
		Confidence: ll.Confidence,
	}, nil
}

// interfaceToString converts a JSON scalar to its string form. Cavity numbers
// are often written as bare numbers.
func interfaceToString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
