// Package formats provides parsers for the legacy game resource formats:
// sectioned text description files (IDE, IPL, DAT manifests) and
// chunk-based binary archives (DFF models, TXD texture dictionaries,
// COL collision archives).
package formats

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Text format errors.
var (
	ErrSyntax              = errors.New("syntax error")
	ErrUnterminatedSection = errors.New("unterminated section")
)

// textRecord is one data line inside a named section.
type textRecord struct {
	Section string
	Line    int
	Fields  []string
}

// splitFields breaks a raw line into whitespace-delimited fields.
// Commas count as whitespace and everything after '#' is a comment,
// matching the behaviour of the original description files.
func splitFields(line string) []string {
	line = strings.ReplaceAll(line, ",", " ")
	fields := strings.Fields(line)
	for i, f := range fields {
		if strings.Contains(f, "#") {
			return fields[:i]
		}
	}
	return fields
}

// scanSections walks a sectioned text file and returns every data line
// tagged with the section it appeared in. Sections open with a single
// word on its own line and close with "end". Data lines outside any
// section are a syntax error; a section left open at EOF is an
// unterminated-section error.
func scanSections(data string) ([]textRecord, error) {
	var records []textRecord
	section := ""
	sectionLine := 0

	for i, raw := range strings.Split(data, "\n") {
		lineNo := i + 1
		fields := splitFields(strings.TrimSpace(raw))
		if len(fields) == 0 {
			continue
		}

		// A single word either closes the current section or opens a new one.
		if len(fields) == 1 {
			word := strings.ToLower(fields[0])
			if word == "end" {
				if section == "" {
					return nil, fmt.Errorf("%w: line %d: 'end' outside of a section", ErrSyntax, lineNo)
				}
				section = ""
				continue
			}
			if section != "" {
				return nil, fmt.Errorf("%w: section %q opened at line %d", ErrUnterminatedSection, section, sectionLine)
			}
			section = word
			sectionLine = lineNo
			continue
		}

		if section == "" {
			return nil, fmt.Errorf("%w: line %d: data outside of a section", ErrSyntax, lineNo)
		}

		records = append(records, textRecord{
			Section: section,
			Line:    lineNo,
			Fields:  fields,
		})
	}

	if section != "" {
		return nil, fmt.Errorf("%w: section %q opened at line %d", ErrUnterminatedSection, section, sectionLine)
	}

	return records, nil
}

// parseUint parses an unsigned integer field, reporting the field name
// and line number on failure.
func parseUint(field, name string, line int) (uint32, error) {
	v, err := strconv.ParseUint(field, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d: %s %q is not a number", ErrSyntax, line, name, field)
	}
	return uint32(v), nil
}

// parseInt parses a signed integer field.
func parseInt(field, name string, line int) (int32, error) {
	v, err := strconv.ParseInt(field, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d: %s %q is not a number", ErrSyntax, line, name, field)
	}
	return int32(v), nil
}

// parseFloat parses a float field.
func parseFloat(field, name string, line int) (float32, error) {
	v, err := strconv.ParseFloat(field, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d: %s %q is not a number", ErrSyntax, line, name, field)
	}
	return float32(v), nil
}
