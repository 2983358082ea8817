package abi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/move-binary-format/errors"
)

// Format selects an ABI encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCBOR Format = "cbor"
)

// ParseFormat maps a format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSON, FormatYAML, FormatCBOR:
		return f, nil
	default:
		return "", errors.InvalidInput(errors.PhaseABI, fmt.Sprintf("unknown ABI format %q (want json, yaml or cbor)", s))
	}
}

// cborEncMode uses canonical CBOR so equal ABIs encode to equal bytes.
var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("abi: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em

	dm, err := cbor.DecOptions{DefaultMapType: reflect.TypeOf(map[string]any(nil))}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("abi: failed to create CBOR dec mode: %v", err))
	}
	cborDecMode = dm
}

// Marshal encodes a in the given format. JSON output is indented.
func Marshal(a *ModuleABI, f Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, a, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes a to w in the given format.
func Encode(w io.Writer, a *ModuleABI, f Format) error {
	var err error
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(a)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err = enc.Encode(a); err == nil {
			err = enc.Close()
		}
	case FormatCBOR:
		err = cborEncMode.NewEncoder(w).Encode(a)
	default:
		_, err = ParseFormat(string(f))
		return err
	}
	if err != nil {
		return errors.Wrap(errors.PhaseABI, errors.KindInvalidInput, err, "encode "+string(f))
	}
	return nil
}

// Unmarshal decodes an ABI produced by Marshal.
func Unmarshal(data []byte, f Format) (*ModuleABI, error) {
	var a ModuleABI
	var err error
	switch f {
	case FormatJSON:
		err = json.Unmarshal(data, &a)
	case FormatYAML:
		err = yaml.Unmarshal(data, &a)
	case FormatCBOR:
		err = cborDecMode.Unmarshal(data, &a)
	default:
		_, err = ParseFormat(string(f))
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(errors.PhaseABI, errors.KindMalformed, err, "decode "+string(f))
	}
	return &a, nil
}

func (t MoveType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.shape())
}

func (t *MoveType) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return t.fromShape(raw)
}

func (t MoveType) MarshalYAML() (any, error) {
	return t.shape(), nil
}

func (t *MoveType) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	return t.fromShape(raw)
}

func (t MoveType) MarshalCBOR() ([]byte, error) {
	return cborEncMode.Marshal(t.shape())
}

func (t *MoveType) UnmarshalCBOR(data []byte) error {
	var raw map[string]any
	if err := cborDecMode.Unmarshal(data, &raw); err != nil {
		return err
	}
	return t.fromShape(raw)
}
