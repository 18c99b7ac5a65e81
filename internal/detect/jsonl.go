package detect

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/repotoire-go/repotoire/internal/graphmodel"
)

// JSONLSink writes one finding-batch's records to a file, one JSON object
// per line, used by StreamingEngine for repositories above the streaming
// threshold.
type JSONLSink struct {
	f *os.File
	w *bufio.Writer
}

func NewJSONLSink(path string) (*JSONLSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &JSONLSink{f: f, w: bufio.NewWriter(f)}, nil
}

func (s *JSONLSink) WriteBatch(findings []graphmodel.Finding) error {
	for _, finding := range findings {
		data, err := json.Marshal(&finding)
		if err != nil {
			return err
		}
		if _, err := s.w.Write(data); err != nil {
			return err
		}
		if err := s.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}

func (s *JSONLSink) Close() error {
	if err := s.w.Flush(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}

// JSONLReader reads findings back out of a JSONL file written by
// JSONLSink, without requiring the whole file to be loaded for every kind
// of query.
type JSONLReader struct {
	path string
}

func NewJSONLReader(path string) *JSONLReader {
	return &JSONLReader{path: path}
}

func (r *JSONLReader) open() (*os.File, error) {
	return os.Open(r.path)
}

// All decodes and returns every finding in the file.
func (r *JSONLReader) All() ([]graphmodel.Finding, error) {
	f, err := r.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []graphmodel.Finding
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var finding graphmodel.Finding
		if err := json.Unmarshal(scanner.Bytes(), &finding); err != nil {
			return out, err
		}
		out = append(out, finding)
	}
	return out, scanner.Err()
}

// First decodes and returns at most n findings, stopping early without
// reading the rest of the file.
func (r *JSONLReader) First(n int) ([]graphmodel.Finding, error) {
	f, err := r.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []graphmodel.Finding
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for len(out) < n && scanner.Scan() {
		var finding graphmodel.Finding
		if err := json.Unmarshal(scanner.Bytes(), &finding); err != nil {
			return out, err
		}
		out = append(out, finding)
	}
	return out, scanner.Err()
}

// HighSeverityOnly decodes and returns only findings at High or Critical
// severity, for bounded-memory scoring passes that only need the worst
// findings.
func (r *JSONLReader) HighSeverityOnly() ([]graphmodel.Finding, error) {
	f, err := r.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []graphmodel.Finding
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var finding graphmodel.Finding
		if err := json.Unmarshal(scanner.Bytes(), &finding); err != nil {
			return out, err
		}
		if finding.Severity >= graphmodel.SeverityHigh {
			out = append(out, finding)
		}
	}
	return out, scanner.Err()
}

// CountsBySeverity performs a counts-only traversal: it decodes each
// record just long enough to read the severity field, never materializing
// the full finding slice, so a caller that only wants totals doesn't pay
// for every AffectedFiles/Description allocation.
func (r *JSONLReader) CountsBySeverity() (map[graphmodel.Severity]int, error) {
	f, err := r.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	counts := make(map[graphmodel.Severity]int)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var partial struct {
			Severity graphmodel.Severity `json:"severity"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &partial); err != nil {
			return counts, err
		}
		counts[partial.Severity]++
	}
	return counts, scanner.Err()
}
