package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/specatalog/internal/catalogerr"
	"github.com/roach88/specatalog/internal/value"
)

type allowedMap map[string][]string

func (m allowedMap) Lookup(set string) ([]string, bool) {
	v, ok := m[set]
	return v, ok
}

var testAllowed = allowedMap{
	SetSolvents:       {"toluene", "water"},
	SetNames:          {"richert", "maylaender", "thielert"},
	SetDevices:        {"", "ELEXSYS", "EMXnano"},
	SetFrequencyBands: {"", "S", "X", "Q", "W"},
	SetRadicals:       {"TRP", "FLAV"},
	SetLinkers:        {"BI", "co", "sup_H", "xy"},
}

func cweprInput() map[string]value.Value {
	return map[string]value.Value{
		"molecular_id":   value.Int(1),
		"temperature":    value.Int(80),
		"solvent":        value.String("toluene"),
		"date":           value.NewDate(2024, time.March, 1),
		"measured_by":    value.String("richert"),
		"corrected":      value.Bool(false),
		"evaluated":      value.Bool(false),
		"frequency_band": value.String("X"),
		"attenuation":    value.Float(20),
	}
}

func TestLookup(t *testing.T) {
	for name, want := range map[string]*Entity{
		"cwepr":          CWEPR,
		"CWEPR":          CWEPR,
		"PulseEPR":       PulseEPR,
		"pulse_epr":      PulseEPR,
		"SingleMolecule": SingleMolecule,
		"molecules":      Molecule,
		" ttp ":          TTP,
	} {
		got, err := Lookup(name)
		require.NoError(t, err, name)
		assert.Same(t, want, got, name)
	}

	_, err := Lookup("nmr")
	assert.ErrorIs(t, err, catalogerr.ErrValidation)
}

func TestEntity_Fields(t *testing.T) {
	fields := CWEPR.Fields()
	assert.Equal(t, "ms_id", fields[0].Name)
	assert.Equal(t, "attenuation", fields[len(fields)-1].Name)
	assert.True(t, CWEPR.OwnsField("frequency_band"))
	assert.False(t, CWEPR.OwnsField("temperature"))
	assert.Equal(t, "ms_id", CWEPR.Key())
	assert.True(t, Measurement.Abstract())
	assert.False(t, RP.Abstract())

	assert.Equal(t, []*Entity{SingleMolecule, RP, TDP, TTP}, Subtypes(FamilyMolecule))
	assert.Len(t, Names(), 9)
}

func TestEntity_ComposeName(t *testing.T) {
	values := map[string]value.Value{
		"chromophore": value.String("PDI0"),
		"linker":      value.String("BI"),
		"doublet":     value.String("NO1"),
	}
	assert.Equal(t, "PDI0-BI-NO1", TDP.ComposeName(values))

	name, _ := TDP.Field("name")
	assert.True(t, TDP.IsManaged(name))
	assert.False(t, SingleMolecule.IsManaged(name))
}

func TestValidateCreate_Valid(t *testing.T) {
	out, err := ValidateCreate(CWEPR, cweprInput(), testAllowed)
	require.NoError(t, err)

	assert.Equal(t, value.Float(80), out["temperature"])
	assert.Equal(t, value.Null{}, out["location"])
	_, managed := out["path"]
	assert.False(t, managed)
}

func TestValidateCreate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		entity *Entity
		mutate func(map[string]value.Value)
		field  string
		msg    string
	}{
		{
			name:   "abstract",
			entity: Measurement,
			mutate: func(map[string]value.Value) {},
			msg:    "abstract",
		},
		{
			name:   "unknown field",
			entity: CWEPR,
			mutate: func(m map[string]value.Value) { m["colour"] = value.String("red") },
			field:  "colour",
			msg:    "unknown field",
		},
		{
			name:   "managed field",
			entity: CWEPR,
			mutate: func(m map[string]value.Value) { m["ms_id"] = value.Int(7) },
			field:  "ms_id",
			msg:    "set automatically",
		},
		{
			name:   "missing required",
			entity: CWEPR,
			mutate: func(m map[string]value.Value) { delete(m, "attenuation") },
			field:  "attenuation",
			msg:    "field is required",
		},
		{
			name:   "non-positive temperature",
			entity: CWEPR,
			mutate: func(m map[string]value.Value) { m["temperature"] = value.Float(-3) },
			field:  "temperature",
			msg:    "must be greater than 0, got -3",
		},
		{
			name:   "enum violation",
			entity: CWEPR,
			mutate: func(m map[string]value.Value) { m["solvent"] = value.String("ethanol") },
			field:  "solvent",
			msg:    `"ethanol" is not an allowed value`,
		},
		{
			name:   "wrong type",
			entity: CWEPR,
			mutate: func(m map[string]value.Value) { m["date"] = value.String("2024-03-01") },
			field:  "date",
			msg:    "expected date, got string",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := cweprInput()
			tt.mutate(in)
			_, err := ValidateCreate(tt.entity, in, testAllowed)
			require.Error(t, err)
			assert.ErrorIs(t, err, catalogerr.ErrValidation)
			assert.Contains(t, err.Error(), tt.msg)

			var ce *catalogerr.Error
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestValidateCreate_EmptyEnumMember(t *testing.T) {
	in := cweprInput()
	in["device"] = value.String("")
	_, err := ValidateCreate(CWEPR, in, testAllowed)
	require.NoError(t, err)
}

func TestValidateCreate_MoleculeNameIsFileStem(t *testing.T) {
	for _, name := range []string{"../../escaped", "cis/trans", `cis\trans`, "a..b", "", "."} {
		t.Run(name, func(t *testing.T) {
			in := map[string]value.Value{
				"name":              value.String(name),
				"molecular_formula": value.String("C9H18NO"),
			}
			_, err := ValidateCreate(SingleMolecule, in, testAllowed)
			assert.ErrorIs(t, err, catalogerr.ErrValidation)

			var ce *catalogerr.Error
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, "name", ce.Field)

			err = ValidateChanges(SingleMolecule, map[string]value.Value{"name": value.String(name)}, testAllowed)
			assert.ErrorIs(t, err, catalogerr.ErrValidation)
		})
	}

	_, err := ValidateCreate(SingleMolecule, map[string]value.Value{
		"name":              value.String("TEMPO-d17 (2)"),
		"molecular_formula": value.String("C9H18NO"),
	}, testAllowed)
	require.NoError(t, err)
}

func TestValidateChanges(t *testing.T) {
	require.NoError(t, ValidateChanges(RP, map[string]value.Value{"radical_1": value.String("FLAV")}, testAllowed))

	err := ValidateChanges(RP, map[string]value.Value{"radical_1": value.Null{}}, testAllowed)
	assert.ErrorIs(t, err, catalogerr.ErrValidation)

	err = ValidateChanges(RP, map[string]value.Value{"linker": value.String("zz")}, testAllowed)
	assert.ErrorIs(t, err, catalogerr.ErrValidation)

	err = ValidateChanges(RP, map[string]value.Value{"smiles": value.Null{}}, testAllowed)
	assert.NoError(t, err)
}

func TestParse(t *testing.T) {
	temp, _ := CWEPR.Field("temperature")
	v, err := Parse(CWEPR, temp, " 80.5 ")
	require.NoError(t, err)
	assert.Equal(t, value.Float(80.5), v)

	date, _ := CWEPR.Field("date")
	v, err = Parse(CWEPR, date, "2024-03-01")
	require.NoError(t, err)
	assert.True(t, value.Equal(value.NewDate(2024, time.March, 1), v))

	_, err = Parse(CWEPR, date, "01.03.2024")
	assert.ErrorIs(t, err, catalogerr.ErrValidation)

	corrected, _ := CWEPR.Field("corrected")
	v, err = Parse(CWEPR, corrected, "true")
	require.NoError(t, err)
	assert.Equal(t, value.Bool(true), v)
}

func TestCoerce_NormalizesStrings(t *testing.T) {
	loc, _ := CWEPR.Field("location")
	v, err := Coerce(CWEPR, loc, value.String("Münster"))
	require.NoError(t, err)
	assert.Equal(t, value.String("Münster"), v)
}

func TestFromAny(t *testing.T) {
	date, _ := CWEPR.Field("date")
	v, err := FromAny(CWEPR, date, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, value.Equal(value.NewDate(2024, time.March, 1), v))

	scans, _ := TREPR.Field("number_of_scans")
	v, err = FromAny(TREPR, scans, float64(12))
	require.NoError(t, err)
	assert.Equal(t, value.Int(12), v)

	temp, _ := CWEPR.Field("temperature")
	v, err = FromAny(CWEPR, temp, 80)
	require.NoError(t, err)
	assert.Equal(t, value.Float(80), v)

	v, err = FromAny(CWEPR, temp, nil)
	require.NoError(t, err)
	assert.Equal(t, value.Null{}, v)

	_, err = FromAny(CWEPR, temp, []int{1})
	assert.ErrorIs(t, err, catalogerr.ErrValidation)
}

func TestRecord(t *testing.T) {
	r := Record{Entity: SingleMolecule, Values: map[string]value.Value{
		"mol_id": value.Int(4),
		"name":   value.String("PDI0"),
	}}
	assert.Equal(t, int64(4), r.ID())
	assert.Equal(t, value.Null{}, r.Get("smiles"))
	assert.Equal(t, "PDI0", r.Text("name"))

	c := r.Clone()
	c.Values["name"] = value.String("other")
	assert.Equal(t, "PDI0", r.Text("name"))

	names, vals := r.Ordered()
	assert.Equal(t, "mol_id", names[0])
	assert.Equal(t, value.Int(4), vals[0])
	assert.Len(t, names, len(SingleMolecule.Fields()))
}
