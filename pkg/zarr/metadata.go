package zarr

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// DescriptorName is the fixed file name of a node descriptor.
	DescriptorName = "zarr.json"
	// HiddenPrefix marks directory entries the metadata walk never visits.
	HiddenPrefix = "."
)

// ErrDecode is matched by every *DecodeError.
var ErrDecode = errors.New("decode node descriptor")

// NodeType identifies the kind of node a descriptor describes. Values other
// than the known constants are kept verbatim.
type NodeType string

const (
	NodeTypeArray NodeType = "array"
	NodeTypeGroup NodeType = "group"
)

// IsArray reports whether the node is an array, i.e. a leaf of the metadata
// tree.
func (t NodeType) IsArray() bool { return t == NodeTypeArray }

// IsGroup reports whether the node is a group.
func (t NodeType) IsGroup() bool { return t == NodeTypeGroup }

func (t NodeType) String() string { return string(t) }

// Metadata is a parsed node descriptor. Only the fields needed to order the
// container are modelled; everything else in the document is ignored.
type Metadata struct {
	NodeType   NodeType
	Attributes Attributes
}

// Attributes holds the subset of user attributes that carry format metadata.
type Attributes struct {
	OME *OMEAttributes `json:"ome,omitempty"`
}

// OMEAttributes is the "ome" attribute namespace.
type OMEAttributes struct {
	Version *string `json:"version,omitempty"`
}

// IsArray reports whether m describes an array node.
func (m *Metadata) IsArray() bool {
	return m != nil && m.NodeType.IsArray()
}

// FormatVersion returns the embedded attributes.ome.version, if any.
func (m *Metadata) FormatVersion() (string, bool) {
	if m == nil || m.Attributes.OME == nil || m.Attributes.OME.Version == nil {
		return "", false
	}
	return *m.Attributes.OME.Version, true
}

type metadataDoc struct {
	NodeType   *NodeType  `json:"node_type"`
	Attributes Attributes `json:"attributes"`
}

// UnmarshalJSON decodes a descriptor, requiring node_type.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var doc metadataDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc.NodeType == nil {
		return fmt.Errorf("missing required field %q", "node_type")
	}
	m.NodeType = *doc.NodeType
	m.Attributes = doc.Attributes
	return nil
}

// MarshalJSON encodes the modelled subset of a descriptor.
func (m Metadata) MarshalJSON() ([]byte, error) {
	nt := m.NodeType
	return json.Marshal(metadataDoc{NodeType: &nt, Attributes: m.Attributes})
}

// DecodeError reports a descriptor that is not valid JSON or does not match
// the descriptor schema.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", ErrDecode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", ErrDecode, e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrDecode) hold for any *DecodeError.
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// ParseMetadata decodes descriptor bytes. path is only used for error
// messages and may be empty.
func ParseMetadata(path string, data []byte) (*Metadata, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &DecodeError{Path: path, Err: errors.New("empty document")}
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return &m, nil
}
