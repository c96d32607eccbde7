package bes3t

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// Spectrum is a decoded BES3T measurement.
type Spectrum struct {
	Params Params

	// Dims lists the axis sizes in storage order (x fastest), with axes of
	// size 1 removed.
	Dims []int

	Real []float64
	Imag []float64 // nil for real-valued data

	// Axes holds one abscissa per axis in Dims.
	Axes [][]float64
}

// Complex reports whether the data has an imaginary part.
func (s *Spectrum) Complex() bool {
	return s.Imag != nil
}

type numberFormat struct {
	size int
	read func(b []byte, order binary.ByteOrder) float64
}

var formats = map[string]numberFormat{
	"C": {1, func(b []byte, _ binary.ByteOrder) float64 { return float64(int8(b[0])) }},
	"S": {2, func(b []byte, o binary.ByteOrder) float64 { return float64(int16(o.Uint16(b))) }},
	"I": {4, func(b []byte, o binary.ByteOrder) float64 { return float64(int32(o.Uint32(b))) }},
	"F": {4, func(b []byte, o binary.ByteOrder) float64 { return float64(math.Float32frombits(o.Uint32(b))) }},
	"D": {8, func(b []byte, o binary.ByteOrder) float64 { return math.Float64frombits(o.Uint64(b)) }},
}

// Load reads base.DSC and base.DTA, plus companion axis files when the
// descriptor asks for them. Upper- and lower-case extensions are accepted.
func Load(base string) (*Spectrum, error) {
	dscPath, err := findCompanion(base, ".DSC")
	if err != nil {
		return nil, err
	}
	dtaPath, err := findCompanion(base, ".DTA")
	if err != nil {
		return nil, err
	}

	dsc, err := os.Open(dscPath)
	if err != nil {
		return nil, fmt.Errorf("open descriptor: %w", err)
	}
	params, err := ReadDSC(dsc)
	dsc.Close()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", dscPath, err)
	}

	dta, err := os.Open(dtaPath)
	if err != nil {
		return nil, fmt.Errorf("open data: %w", err)
	}
	defer dta.Close()

	companion := func(axis string) (io.ReadCloser, error) {
		p, err := findCompanion(base, "."+axis+"GF")
		if err != nil {
			return nil, err
		}
		return os.Open(p)
	}

	s, err := Decode(params, bufio.NewReader(dta), companion)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", base, err)
	}
	return s, nil
}

// findCompanion returns base+ext in upper or lower case, whichever exists.
func findCompanion(base, ext string) (string, error) {
	for _, candidate := range []string{base + ext, base + strings.ToLower(ext)} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%s: %w", filepath.Base(base)+ext, fs.ErrNotExist)
}

// Decode reads the data described by params from dta. companion opens the
// axis file for an indirect (IGD) axis; it may be nil.
func Decode(params Params, dta io.Reader, companion func(axis string) (io.ReadCloser, error)) (*Spectrum, error) {
	nx, err := params.Int("XPTS", 0)
	if err != nil {
		return nil, err
	}
	if nx <= 0 {
		return nil, errors.New("XPTS is missing or zero")
	}
	ny, err := params.Int("YPTS", 1)
	if err != nil {
		return nil, err
	}
	nz, err := params.Int("ZPTS", 1)
	if err != nil {
		return nil, err
	}
	dims := []int{nx, ny, nz}

	order, err := byteOrder(params)
	if err != nil {
		return nil, err
	}

	if !params.Has("IRFMT") {
		return nil, errors.New("IRFMT is missing")
	}
	tag := params.First("IRFMT")
	format, ok := formats[tag]
	if !ok {
		return nil, fmt.Errorf("unsupported IRFMT %q", tag)
	}

	isComplex := params.First("IKKF") == "CPLX"
	points := nx * ny * nz
	count := points
	if isComplex {
		count *= 2
	}

	values, err := readValues(dta, format, order, count)
	if err != nil {
		return nil, err
	}

	s := &Spectrum{Params: params}
	if isComplex {
		s.Real = make([]float64, points)
		s.Imag = make([]float64, points)
		for i := range points {
			s.Real[i] = values[2*i]
			s.Imag[i] = values[2*i+1]
		}
	} else {
		s.Real = values
	}

	for i, axis := range []string{"X", "Y", "Z"} {
		if dims[i] <= 1 {
			continue
		}
		s.Dims = append(s.Dims, dims[i])
		s.Axes = append(s.Axes, abscissa(params, axis, dims[i], order, companion))
	}
	if len(s.Dims) == 0 {
		s.Dims = []int{points}
	}
	return s, nil
}

func byteOrder(params Params) (binary.ByteOrder, error) {
	if !params.Has("BSEQ") {
		return binary.BigEndian, nil
	}
	switch params.First("BSEQ") {
	case "BIG":
		return binary.BigEndian, nil
	case "LIT":
		return binary.LittleEndian, nil
	default:
		return nil, fmt.Errorf("unknown BSEQ %q", params["BSEQ"])
	}
}

// readValues reads exactly count values. Trailing extra data is ignored.
func readValues(r io.Reader, format numberFormat, order binary.ByteOrder, count int) ([]float64, error) {
	buf := make([]byte, format.size)
	out := make([]float64, count)
	for i := range count {
		if _, err := io.ReadFull(r, buf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("data file holds %d of %d expected values", i, count)
			}
			return nil, fmt.Errorf("read data: %w", err)
		}
		out[i] = format.read(buf, order)
	}
	return out, nil
}

// abscissa builds the axis values. Indirect axes come from a companion file;
// anything unreadable falls back to a linear axis, and a linear axis with
// missing or zero width falls back to indices.
func abscissa(params Params, axis string, n int, order binary.ByteOrder, companion func(string) (io.ReadCloser, error)) []float64 {
	if params[axis+"TYP"] == "IGD" && companion != nil {
		if values, ok := readCompanion(params, axis, n, order, companion); ok {
			return values
		}
	}

	minimum, errMin := params.Float(axis + "MIN")
	width, errWid := params.Float(axis + "WID")
	if errMin != nil || errWid != nil || width == 0 {
		return indices(n)
	}
	return linspace(minimum, minimum+width, n)
}

func readCompanion(params Params, axis string, n int, order binary.ByteOrder, companion func(string) (io.ReadCloser, error)) ([]float64, bool) {
	tag := params.First(axis + "FMT")
	if tag == "" {
		tag = "D"
	}
	format, ok := formats[tag]
	if !ok || tag == "C" {
		return nil, false
	}

	rc, err := companion(axis)
	if err != nil {
		return nil, false
	}
	defer rc.Close()

	values, err := readValues(bufio.NewReader(rc), format, order, n)
	if err != nil {
		return nil, false
	}
	return values, true
}

// linspace returns n evenly spaced values from start to stop inclusive.
func linspace(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}

func indices(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}
