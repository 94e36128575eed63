package variant

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/agentic-research/mme/api"
	"github.com/ohler55/ojg/oj"
)

// ErrBadRecord marks a meshData entry that does not decode.
var ErrBadRecord = errors.New("undecodable mesh data record")

// EncodeRecord renders r as base64 of its JSON form.
func EncodeRecord(r api.MeshDataRecord) string {
	js := oj.JSON(map[string]any{"mesh": r.Mesh, "path": r.Path}, &oj.Options{Sort: true})
	return base64.StdEncoding.EncodeToString([]byte(js))
}

// DecodeRecord reverses EncodeRecord.
func DecodeRecord(s string) (api.MeshDataRecord, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return api.MeshDataRecord{}, fmt.Errorf("%w: %v", ErrBadRecord, err)
	}
	v, err := oj.ParseString(string(raw))
	if err != nil {
		return api.MeshDataRecord{}, fmt.Errorf("%w: %v", ErrBadRecord, err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return api.MeshDataRecord{}, fmt.Errorf("%w: %T is not an object", ErrBadRecord, v)
	}
	mesh, _ := m["mesh"].(string)
	path, _ := m["path"].(string)
	if mesh == "" || path == "" {
		return api.MeshDataRecord{}, fmt.Errorf("%w: missing mesh or path", ErrBadRecord)
	}
	return api.MeshDataRecord{Mesh: mesh, Path: path}, nil
}

// EncodeRecords encodes every record.
func EncodeRecords(recs []api.MeshDataRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = EncodeRecord(r)
	}
	return out
}

// DecodeRecords decodes what it can. Entries that fail are dropped and
// reported together in the returned error.
func DecodeRecords(in []string) ([]api.MeshDataRecord, error) {
	out := make([]api.MeshDataRecord, 0, len(in))
	var errs []error
	for i, s := range in {
		r, err := DecodeRecord(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		out = append(out, r)
	}
	return out, errors.Join(errs...)
}
