package engine

import (
	"encoding/json"
	"fmt"
)

// ProcedureSpec describes a server-side procedure to create.
// The engine reads params.inputData, runs it, and materializes the result
// into params.outputDataset.
type ProcedureSpec struct {
	Type   string          `json:"type" yaml:"type"`
	Params ProcedureParams `json:"params" yaml:"params"`
}

// ProcedureParams are the procedure parameters the harness drives.
//
// OutputDataset is either a plain dataset name (string) or a structured
// descriptor selecting a storage backend, e.g. {id: sparse, type:
// sparse.mutable}. Extra engine-specific params (dataFileUrl for import.text
// and the like) ride along in Extra.
type ProcedureParams struct {
	InputData     string         `json:"inputData,omitempty" yaml:"inputData,omitempty"`
	OutputDataset any            `json:"outputDataset,omitempty" yaml:"outputDataset,omitempty"`
	RunOnCreation *bool          `json:"runOnCreation,omitempty" yaml:"runOnCreation,omitempty"`
	Extra         map[string]any `json:"-" yaml:",inline"`
}

// MarshalJSON flattens Extra into the params object so engine-specific
// parameters reach the wire alongside the declared fields.
func (p ProcedureParams) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(p.Extra)+3)
	for k, v := range p.Extra {
		m[k] = v
	}
	if p.InputData != "" {
		m["inputData"] = p.InputData
	}
	if p.OutputDataset != nil {
		m["outputDataset"] = p.OutputDataset
	}
	if p.RunOnCreation != nil {
		m["runOnCreation"] = *p.RunOnCreation
	}
	return json.Marshal(m)
}

// DatasetConfig names a dataset and its storage backend.
type DatasetConfig struct {
	ID   string `json:"id" yaml:"id"`
	Type string `json:"type" yaml:"type"`
}

// Row is a single dataset row: a name plus (column, value, timestamp)
// triples, mirroring the engine's row recording format.
type Row struct {
	Name    string  `json:"rowName" yaml:"name"`
	Columns [][]any `json:"columns" yaml:"columns"`
}

// OutputDatasetName extracts the dataset name from an outputDataset value,
// which may be a plain string, a DatasetConfig, or a decoded map.
// ok is false when no name is present.
func OutputDatasetName(v any) (name string, ok bool) {
	switch d := v.(type) {
	case string:
		return d, d != ""
	case DatasetConfig:
		return d.ID, d.ID != ""
	case *DatasetConfig:
		return d.ID, d.ID != ""
	case map[string]any:
		id, found := d["id"]
		if !found {
			return "", false
		}
		s, isStr := id.(string)
		return s, isStr && s != ""
	default:
		return "", false
	}
}

// SetOutputDatasetName replaces the name inside an outputDataset value,
// preserving the descriptor shape. Used when the harness generates a unique
// output name for a spec that omitted one.
func SetOutputDatasetName(v any, name string) (any, error) {
	switch d := v.(type) {
	case nil, string:
		return name, nil
	case DatasetConfig:
		d.ID = name
		return d, nil
	case map[string]any:
		out := make(map[string]any, len(d)+1)
		for k, val := range d {
			out[k] = val
		}
		out["id"] = name
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported outputDataset type %T", v)
	}
}
