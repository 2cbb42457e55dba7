package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
)

//go:embed seed/species.json
var seedFS embed.FS

// Load reads a species catalog from path and builds the presence index.
// An empty path falls back to the embedded seed catalog.
func Load(path string) (*Index, error) {
	var data []byte
	var err error

	if path == "" {
		data, err = seedFS.ReadFile("seed/species.json")
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	var list []Species
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	return NewIndex(list), nil
}
