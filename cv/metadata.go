package cv

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// LoadMetadata decodes a YAML metadata file into the opaque key/value
// block carried alongside the digitized data. The digitizer does not
// interpret its contents.
func LoadMetadata(r io.Reader) (map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("cv: reading metadata: %w", err)
	}

	var meta map[string]any
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("cv: decoding metadata: %w", err)
	}
	return meta, nil
}
