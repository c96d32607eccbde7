package schema

import (
	"sort"
	"strings"

	"github.com/roach88/specatalog/internal/catalogerr"
)

// Allowed-values sets referenced by enum fields.
const (
	SetSolvents         = "solvents"
	SetNames            = "names"
	SetDevices          = "devices"
	SetFrequencyBands   = "frequency_bands"
	SetPulseExperiments = "pulse_experiments"
	SetChromophores     = "chromophores"
	SetDoublets         = "doublets"
	SetLinkers          = "linkers"
	SetRadicals         = "radicals"
)

func timestamps() []Field {
	return []Field{
		{Name: "created_at", Type: TypeDateTime, Required: true, Managed: true, Identity: true},
		{Name: "updated_at", Type: TypeDateTime, Required: true, Managed: true, Identity: true},
	}
}

// Measurement is the base of all spectroscopic measurements.
var Measurement = &Entity{
	Name:   "measurement",
	Title:  "Measurement",
	Family: FamilyMeasurement,
	Table:  "measurements",
	Own: append([]Field{
		{Name: "ms_id", Type: TypeInt, Required: true, Unique: true, Managed: true, Identity: true},
		{Name: "molecular_id", Type: TypeInt, Required: true, Identity: true},
		{Name: "method", Type: TypeString, Required: true, Managed: true, Identity: true},
		{Name: "temperature", Type: TypeFloat, Required: true, Positive: true},
		{Name: "solvent", Type: TypeEnum, Required: true, Enum: SetSolvents},
		{Name: "concentration", Type: TypeString},
		{Name: "date", Type: TypeDate, Required: true},
		{Name: "measured_by", Type: TypeEnum, Required: true, Enum: SetNames},
		{Name: "location", Type: TypeString},
		{Name: "device", Type: TypeEnum, Enum: SetDevices},
		{Name: "series", Type: TypeString},
		{Name: "path", Type: TypeText, Required: true, Unique: true, Managed: true, Identity: true},
		{Name: "corrected", Type: TypeBool, Required: true},
		{Name: "evaluated", Type: TypeBool, Required: true},
	}, timestamps()...),
}

// CWEPR is a continuous-wave EPR measurement.
var CWEPR = &Entity{
	Name:   "cwepr",
	Title:  "CWEPR",
	Family: FamilyMeasurement,
	Table:  "cwepr",
	Parent: Measurement,
	Own: []Field{
		{Name: "frequency_band", Type: TypeEnum, Required: true, Enum: SetFrequencyBands},
		{Name: "attenuation", Type: TypeFloat, Required: true},
	},
}

// TREPR is a time-resolved EPR measurement.
var TREPR = &Entity{
	Name:   "trepr",
	Title:  "TREPR",
	Family: FamilyMeasurement,
	Table:  "trepr",
	Parent: Measurement,
	Own: []Field{
		{Name: "frequency_band", Type: TypeEnum, Required: true, Enum: SetFrequencyBands},
		{Name: "excitation_wl", Type: TypeFloat, Required: true},
		{Name: "excitation_energy", Type: TypeFloat},
		{Name: "attenuation", Type: TypeFloat, Required: true},
		{Name: "number_of_scans", Type: TypeInt},
		{Name: "repetitionrate", Type: TypeFloat},
		{Name: "mode", Type: TypeString},
	},
}

// PulseEPR is a pulsed EPR measurement.
var PulseEPR = &Entity{
	Name:   "pulse_epr",
	Title:  "PulseEPR",
	Family: FamilyMeasurement,
	Table:  "pulse_epr",
	Parent: Measurement,
	Own: []Field{
		{Name: "pulse_experiment", Type: TypeEnum, Required: true, Enum: SetPulseExperiments},
		{Name: "frequency_band", Type: TypeEnum, Enum: SetFrequencyBands},
		{Name: "dsc_path", Type: TypeText, Required: true, Unique: true},
	},
}

// Molecule is the base of all molecule groups.
var Molecule = &Entity{
	Name:   "molecule",
	Title:  "Molecule",
	Family: FamilyMolecule,
	Table:  "molecules",
	Own: append([]Field{
		{Name: "mol_id", Type: TypeInt, Required: true, Unique: true, Managed: true, Identity: true},
		{Name: "name", Type: TypeString, Required: true, Unique: true, FileStem: true},
		{Name: "molecular_formula", Type: TypeString, Required: true},
		{Name: "smiles", Type: TypeText, Unique: true},
		{Name: "structural_formula", Type: TypeText, Required: true, Unique: true, Managed: true, Identity: true},
		{Name: "group", Type: TypeString, Required: true, Managed: true, Identity: true},
	}, timestamps()...),
}

// SingleMolecule is an individual molecular species.
var SingleMolecule = &Entity{
	Name:   "single",
	Title:  "SingleMolecule",
	Family: FamilyMolecule,
	Table:  "single",
	Parent: Molecule,
	Own: []Field{
		{Name: "additional_info", Type: TypeText},
	},
}

// RP is a radical pair.
var RP = &Entity{
	Name:   "rp",
	Title:  "RP",
	Family: FamilyMolecule,
	Table:  "rp",
	Parent: Molecule,
	Own: []Field{
		{Name: "radical_1", Type: TypeEnum, Required: true, Enum: SetRadicals},
		{Name: "linker", Type: TypeEnum, Required: true, Enum: SetLinkers},
		{Name: "radical_2", Type: TypeEnum, Required: true, Enum: SetRadicals},
	},
	NameParts: []string{"radical_1", "linker", "radical_2"},
}

// TDP is a triplet-doublet pair.
var TDP = &Entity{
	Name:   "tdp",
	Title:  "TDP",
	Family: FamilyMolecule,
	Table:  "tdp",
	Parent: Molecule,
	Own: []Field{
		{Name: "doublet", Type: TypeEnum, Required: true, Enum: SetDoublets},
		{Name: "linker", Type: TypeEnum, Required: true, Enum: SetLinkers},
		{Name: "chromophore", Type: TypeEnum, Required: true, Enum: SetChromophores},
	},
	NameParts: []string{"chromophore", "linker", "doublet"},
}

// TTP is a triplet-triplet pair.
var TTP = &Entity{
	Name:   "ttp",
	Title:  "TTP",
	Family: FamilyMolecule,
	Table:  "ttp",
	Parent: Molecule,
	Own: []Field{
		{Name: "triplet_1", Type: TypeEnum, Required: true, Enum: SetChromophores},
		{Name: "linker", Type: TypeEnum, Required: true, Enum: SetLinkers},
		{Name: "triplet_2", Type: TypeEnum, Required: true, Enum: SetChromophores},
	},
	NameParts: []string{"triplet_1", "linker", "triplet_2"},
}

var entities = []*Entity{
	Measurement, CWEPR, TREPR, PulseEPR,
	Molecule, SingleMolecule, RP, TDP, TTP,
}

var aliases = map[string]string{
	"pulseepr":        "pulse_epr",
	"singlemolecule":  "single",
	"single_molecule": "single",
	"measurements":    "measurement",
	"molecules":       "molecule",
}

// All returns every entity, bases first within each family.
func All() []*Entity {
	out := make([]*Entity, len(entities))
	copy(out, entities)
	return out
}

// Subtypes returns the concrete entities of a family.
func Subtypes(f Family) []*Entity {
	var out []*Entity
	for _, e := range entities {
		if e.Family == f && !e.IsBase() {
			out = append(out, e)
		}
	}
	return out
}

// Lookup finds an entity by name, case-insensitively.
func Lookup(name string) (*Entity, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := aliases[key]; ok {
		key = alias
	}
	for _, e := range entities {
		if e.Name == key || strings.ToLower(e.Title) == key {
			return e, nil
		}
	}
	return nil, catalogerr.Validation("", "entity", "unknown entity %q (known: %s)", name, strings.Join(Names(), ", "))
}

// Names returns the sorted entity names.
func Names() []string {
	names := make([]string, 0, len(entities))
	for _, e := range entities {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}
