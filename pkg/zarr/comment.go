package zarr

import (
	"encoding/json"
	"errors"
)

// Comment is the record stored as the container comment. Readers use it to
// decide whether descriptors can be read from the front of the central
// directory without scanning the whole container.
//
// On the wire it is nested under the "ome" namespace:
//
//	{"ome":{"version":"0.5","zipFile":{"centralDirectory":{"jsonFirst":true}}}}
type Comment struct {
	Version       string
	MetadataFirst bool
}

// NewComment returns the record for a container of the given format version.
func NewComment(version string, metadataFirst bool) Comment {
	return Comment{Version: version, MetadataFirst: metadataFirst}
}

type commentDoc struct {
	OME *commentOME `json:"ome"`
}

type commentOME struct {
	Version *string         `json:"version"`
	ZipFile *commentZipFile `json:"zipFile,omitempty"`
}

type commentZipFile struct {
	CentralDirectory *commentCentralDirectory `json:"centralDirectory,omitempty"`
}

type commentCentralDirectory struct {
	JSONFirst *bool `json:"jsonFirst,omitempty"`
}

// MarshalJSON encodes the nested wire form.
func (c Comment) MarshalJSON() ([]byte, error) {
	version := c.Version
	jsonFirst := c.MetadataFirst
	return json.Marshal(commentDoc{OME: &commentOME{
		Version: &version,
		ZipFile: &commentZipFile{
			CentralDirectory: &commentCentralDirectory{JSONFirst: &jsonFirst},
		},
	}})
}

// UnmarshalJSON decodes the nested wire form. An absent jsonFirst flag means
// the container makes no ordering promise.
func (c *Comment) UnmarshalJSON(data []byte) error {
	var doc commentDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc.OME == nil {
		return errors.New(`comment: missing "ome" namespace`)
	}
	if doc.OME.Version == nil {
		return errors.New(`comment: missing "ome.version"`)
	}
	c.Version = *doc.OME.Version
	c.MetadataFirst = false
	if zf := doc.OME.ZipFile; zf != nil && zf.CentralDirectory != nil && zf.CentralDirectory.JSONFirst != nil {
		c.MetadataFirst = *zf.CentralDirectory.JSONFirst
	}
	return nil
}

// ParseComment decodes a container comment string.
func ParseComment(s string) (Comment, error) {
	var c Comment
	if err := json.Unmarshal([]byte(s), &c); err != nil {
		return Comment{}, err
	}
	return c, nil
}
