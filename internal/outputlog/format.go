package outputlog

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/eugenenazirov/spacing-calculator/internal/calculator"
	"github.com/eugenenazirov/spacing-calculator/internal/spacer"
)

const (
	targetSuffix = " in"
	offByPrefix  = "\tOff by "
)

// FormatEntry renders a fit as a saved output block:
//
//	<target> in
//		Off by <residual>
//		<count> <name> <thickness>
//
// with one allocation line per spacer used, in registry order. Control
// characters in names are written as spaces so every allocation stays on one
// line.
func FormatEntry(targetText string, result calculator.Result) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(targetText))
	b.WriteString(targetSuffix)
	b.WriteString("\n")
	b.WriteString(offByPrefix)
	b.WriteString(result.Residual.String())
	for _, a := range result.Used() {
		fmt.Fprintf(&b, "\n\t%d %s %s", a.Count, singleLine(a.Spacer.Name), a.Spacer.Thickness)
	}
	return b.String()
}

func singleLine(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, name)
}

// ParsedLine is one allocation line of a saved entry.
type ParsedLine struct {
	Count     int
	Name      string
	Thickness spacer.Thickness
}

// ParsedEntry is the structured form of a saved entry.
type ParsedEntry struct {
	Target   string
	Residual spacer.Thickness
	Lines    []ParsedLine
}

// ParseEntry reads a block produced by FormatEntry.
func ParseEntry(text string) (ParsedEntry, error) {
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return ParsedEntry{}, fmt.Errorf("%w: expected target and residual lines", ErrMalformedEntry)
	}

	target, ok := strings.CutSuffix(lines[0], targetSuffix)
	if !ok || target == "" {
		return ParsedEntry{}, fmt.Errorf("%w: bad target line %q", ErrMalformedEntry, lines[0])
	}

	rawResidual, ok := strings.CutPrefix(lines[1], offByPrefix)
	if !ok {
		return ParsedEntry{}, fmt.Errorf("%w: bad residual line %q", ErrMalformedEntry, lines[1])
	}
	residual, err := spacer.ParseInches(rawResidual)
	if err != nil {
		return ParsedEntry{}, fmt.Errorf("%w: residual: %v", ErrMalformedEntry, err)
	}

	entry := ParsedEntry{Target: target, Residual: residual}
	for _, line := range lines[2:] {
		parsed, err := parseLine(line)
		if err != nil {
			return ParsedEntry{}, err
		}
		entry.Lines = append(entry.Lines, parsed)
	}
	return entry, nil
}

func parseLine(line string) (ParsedLine, error) {
	body, ok := strings.CutPrefix(line, "\t")
	if !ok {
		return ParsedLine{}, fmt.Errorf("%w: allocation line %q is not indented", ErrMalformedEntry, line)
	}
	rawCount, rest, ok := strings.Cut(body, " ")
	if !ok {
		return ParsedLine{}, fmt.Errorf("%w: allocation line %q", ErrMalformedEntry, line)
	}
	count, err := strconv.Atoi(rawCount)
	if err != nil || count <= 0 {
		return ParsedLine{}, fmt.Errorf("%w: bad count in %q", ErrMalformedEntry, line)
	}
	sep := strings.LastIndex(rest, " ")
	if sep < 0 {
		return ParsedLine{}, fmt.Errorf("%w: allocation line %q", ErrMalformedEntry, line)
	}
	thickness, err := spacer.ParseThickness(rest[sep+1:])
	if err != nil {
		return ParsedLine{}, fmt.Errorf("%w: bad thickness in %q", ErrMalformedEntry, line)
	}
	return ParsedLine{Count: count, Name: rest[:sep], Thickness: thickness}, nil
}
