// Package storage reads batch problems from disk and writes decoded results.
package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/happyhackingspace/treetopk"
)

// Format is the encoding of a problem file.
type Format int

const (
	JSON Format = iota
	YAML
)

// FormatOf picks the format from a file extension; anything that is not
// .yaml or .yml is JSON.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	}
	return JSON
}

// hostProblem mirrors the numeric host call: K as a real, E as an E_nrow×2
// column-major matrix and node_degree as a 1×nlabel matrix.
type hostProblem struct {
	Gradient   []float64        `json:"gradient" yaml:"gradient"`
	K          float64          `json:"k" yaml:"k"`
	E          *treetopk.Matrix `json:"E" yaml:"E"`
	NodeDegree *treetopk.Matrix `json:"node_degree" yaml:"node_degree"`
	OneBased   bool             `json:"one_based" yaml:"one_based"`
}

// problemFile is either a plain problem or, when Host is set, a host call.
type problemFile struct {
	treetopk.Problem `yaml:",inline"`
	Host             *hostProblem `json:"host,omitempty" yaml:"host,omitempty"`
}

// ReadProblem decodes a problem from r.
func ReadProblem(r io.Reader, format Format) (treetopk.Problem, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return treetopk.Problem{}, fmt.Errorf("read problem: %w", err)
	}
	var pf problemFile
	switch format {
	case YAML:
		err = yaml.Unmarshal(data, &pf)
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&pf)
	}
	if err != nil {
		return treetopk.Problem{}, fmt.Errorf("decode problem: %w", err)
	}
	if pf.Host == nil {
		return pf.Problem, nil
	}
	h := pf.Host
	return treetopk.FromHost(h.Gradient, h.K, h.E, h.NodeDegree, h.OneBased)
}

// LoadProblem reads a problem file, choosing the decoder by extension.
func LoadProblem(path string) (treetopk.Problem, error) {
	f, err := os.Open(path)
	if err != nil {
		return treetopk.Problem{}, err
	}
	defer func() { _ = f.Close() }()
	p, err := ReadProblem(f, FormatOf(path))
	if err != nil {
		return treetopk.Problem{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// ResultFile is the on-disk form of a decoded batch, one row per instance.
type ResultFile struct {
	Instances int         `json:"instances"`
	K         int         `json:"k"`
	NumLabels int         `json:"nlabel"`
	Shift     float64     `json:"shift"`
	Ymax      [][]float64 `json:"ymax"`
	YmaxVal   [][]float64 `json:"ymax_val"`
	Found     []int       `json:"found"`
}

// NewResultFile converts a Result into row form.
func NewResultFile(res *treetopk.Result) ResultFile {
	mm := res.Instances()
	rf := ResultFile{
		Instances: mm,
		K:         res.K,
		NumLabels: res.NumLabels,
		Shift:     res.Shift,
		Ymax:      make([][]float64, mm),
		YmaxVal:   make([][]float64, mm),
		Found:     res.Found,
	}
	for i := 0; i < mm; i++ {
		rf.Ymax[i] = res.Ymax.Row(i)
		rf.YmaxVal[i] = res.YmaxVal.Row(i)
	}
	return rf
}

// WriteResult encodes res as indented JSON.
func WriteResult(w io.Writer, res *treetopk.Result) error {
	data, err := json.MarshalIndent(NewResultFile(res), "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// SaveResult writes res to path as JSON.
func SaveResult(res *treetopk.Result, path string) error {
	var buf bytes.Buffer
	if err := WriteResult(&buf, res); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
