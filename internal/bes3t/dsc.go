// Package bes3t reads Bruker BES3T spectra: a .DSC descriptor with
// key/value parameters, a .DTA binary data file and optional .XGF/.YGF/.ZGF
// companion files for non-linear axes.
package bes3t

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
)

// Params holds the descriptor parameters, keyed as written in the file.
type Params map[string]string

// ReadDSC parses a descriptor. Lines ending in a backslash continue on the
// next line; reading stops at the manipulation history layer (#MHL); lines
// whose key does not start with a letter are skipped.
func ReadDSC(r io.Reader) (Params, error) {
	params := Params{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var pending string
	for sc.Scan() {
		line := strings.TrimSpace(latin1(sc.Bytes()))
		if strings.HasSuffix(line, `\`) {
			pending += strings.TrimSuffix(line, `\`)
			continue
		}
		line = pending + line
		pending = ""

		if stop := parseLine(params, line); stop {
			return params, nil
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read dsc: %w", err)
	}
	if pending != "" {
		parseLine(params, pending)
	}
	return params, nil
}

func parseLine(params Params, line string) (stop bool) {
	line = strings.ReplaceAll(line, `\n`, "\n")
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	key := fields[0]
	if strings.EqualFold(key, "#MHL") {
		return true
	}
	if !unicode.IsLetter([]rune(key)[0]) {
		return false
	}

	val := strings.TrimSpace(strings.TrimPrefix(line, key))
	if len(val) >= 2 && strings.HasPrefix(val, "'") && strings.HasSuffix(val, "'") {
		val = val[1 : len(val)-1]
	}
	params[key] = val
	return false
}

// latin1 decodes ISO-8859-1 bytes, the encoding Bruker writes descriptors in.
func latin1(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

// Has reports whether key is present.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Int parses key as an integer, returning def when absent.
func (p Params) Int(key string, def int) (int, error) {
	s, ok := p[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parameter %s: invalid integer %q", key, s)
	}
	return n, nil
}

// Float parses key as a float.
func (p Params) Float(key string) (float64, error) {
	s, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("parameter %s is missing", key)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("parameter %s: invalid number %q", key, s)
	}
	return x, nil
}

// First returns the first comma-separated entry of key, upper-cased.
func (p Params) First(key string) string {
	s, _, _ := strings.Cut(p[key], ",")
	return strings.ToUpper(strings.TrimSpace(s))
}
