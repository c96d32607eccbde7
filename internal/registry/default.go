package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/roach88/specatalog/internal/catalogerr"
)

// DefaultSource is written by WriteDefault when an archive is initialized.
const DefaultSource = `// Allowed values for enum fields of the catalog.
// Each field names a set; add or remove entries as needed.

names: ["richert", "maylaender", "thielert"]

solvents: ["toluene", "water"]

devices: ["", "ELEXSYS", "EMXnano"]

frequency_bands: ["", "S", "X", "Q", "W"]

pulse_experiments: ["PEANUT", "PELDOR", "TN", "SR"]

chromophores: [
	"BDP0", "BDP1", "NDI0", "PENT", "PER",
	"PDI0", "PDI2", "PDI4", "POR0", "POR1", "POR2",
]

doublets: ["NO1", "NO2", "NO3", "NO4", "NO5", "TRI"]

linkers: ["BI", "co", "sup_H", "xy"]

radicals: ["TRP", "FLAV"]
`

// WriteDefault writes DefaultSource to path unless a file is already
// there. It reports whether it wrote.
func WriteDefault(path string) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create allowed values: %w", err)
	}
	if _, err := f.WriteString(DefaultSource); err != nil {
		f.Close()
		return false, fmt.Errorf("write allowed values: %w", err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("close allowed values: %w", err)
	}
	return true, nil
}

// Default returns the table parsed from DefaultSource.
func Default() Table {
	t, err := Parse("default", []byte(DefaultSource))
	if err != nil {
		panic(catalogerr.Configuration("", "default allowed values: %v", err))
	}
	return t
}
