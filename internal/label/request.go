package label

import (
	"bytes"
	"encoding/json"
	"math"
)

const (
	TemplateSimple   = "simple"
	TemplateProduct  = "product"
	TemplateShipping = "shipping"
)

const (
	Size1x3 = "1x3"
	Size2x4 = "2x4"
	Size4x6 = "4x6"
)

const (
	DefaultTemplate  = TemplateSimple
	DefaultLabelSize = Size2x4
	DefaultTarget    = "small"
	DefaultCopies    = 1
)

// GenerateRequest is an inbound request with every default applied.
type GenerateRequest struct {
	Template  string
	Data      map[string]json.RawMessage
	LabelSize string
	Target    string
	Copies    int
	URL       string
	DryRun    bool
	Print     bool
}

// GeneratorPayload is the body POSTed to {base}/generate.
type GeneratorPayload struct {
	Template  string                     `json:"template"`
	Data      map[string]json.RawMessage `json:"data"`
	LabelSize string                     `json:"labelSize"`
	Copies    int                        `json:"copies"`
	Print     bool                       `json:"print"`
}

// wireRequest mirrors the JSON body. Loosely typed fields stay raw so they
// can be coerced instead of rejected.
type wireRequest struct {
	Template  *string                    `json:"template"`
	Data      map[string]json.RawMessage `json:"data"`
	LabelSize *string                    `json:"labelSize"`
	Target    *string                    `json:"target"`
	Copies    json.RawMessage            `json:"copies"`
	URL       *string                    `json:"url"`
	DryRun    json.RawMessage            `json:"dryRun"`
	Print     json.RawMessage            `json:"print"`
}

// Decode parses a request body and normalizes it. An empty body is the same
// as {}. Only JSON syntax and the types of template, labelSize, target, url
// and data are checked; a failure is returned as *InvalidBodyError.
func Decode(body []byte) (GenerateRequest, error) {
	var wire wireRequest

	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &wire); err != nil {
			return GenerateRequest{}, newInvalidBodyError(err)
		}
	}

	return wire.normalize(), nil
}

func (w wireRequest) normalize() GenerateRequest {
	req := GenerateRequest{
		Template:  stringOr(w.Template, DefaultTemplate),
		Data:      w.Data,
		LabelSize: stringOr(w.LabelSize, DefaultLabelSize),
		Target:    DefaultTarget,
		Copies:    copiesFromJSON(w.Copies),
		DryRun:    truthy(w.DryRun),
		Print:     isTrue(w.Print),
	}

	// An explicit target is kept verbatim, even "", so unknown names fail
	// target resolution instead of silently printing on the default printer.
	if w.Target != nil {
		req.Target = *w.Target
	}

	if w.URL != nil {
		req.URL = *w.URL
	}

	if req.Data == nil {
		req.Data = map[string]json.RawMessage{}
	}

	return req
}

// Payload returns the subset of the request the generator understands.
func (r GenerateRequest) Payload() GeneratorPayload {
	data := r.Data
	if data == nil {
		data = map[string]json.RawMessage{}
	}

	return GeneratorPayload{
		Template:  r.Template,
		Data:      data,
		LabelSize: r.LabelSize,
		Copies:    r.Copies,
		Print:     r.Print,
	}
}

// ClampCopies truncates n to an integer and replaces anything that is not a
// positive int32-sized number with DefaultCopies.
func ClampCopies(n float64) int {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return DefaultCopies
	}

	n = math.Trunc(n)
	if n < 1 || n > math.MaxInt32 {
		return DefaultCopies
	}

	return int(n)
}

func copiesFromJSON(raw json.RawMessage) int {
	if len(raw) == 0 {
		return DefaultCopies
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return DefaultCopies
	}

	return ClampCopies(n)
}

func stringOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

// truthy follows JavaScript truthiness: false, 0, "" and null are false,
// everything else is true.
func truthy(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}

	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

func isTrue(raw json.RawMessage) bool {
	var b bool
	if len(raw) == 0 || json.Unmarshal(raw, &b) != nil {
		return false
	}
	return b
}
