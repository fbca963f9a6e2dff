package metric

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
)

// Parser extracts the metric from the build output, if it is in a format it knows.
type Parser struct {
	Name  string
	Parse func(stdout, stderr string) (float64, bool)
}

// Parsers are tried in order.
var Parsers = []Parser{
	{Name: "cold", Parse: func(_, stderr string) (float64, bool) { return ParseCold(stderr) }},
	{Name: "crinkler", Parse: func(stdout, _ string) (float64, bool) { return ParseCrinkler(stdout) }},
}

var (
	ansiRE     = regexp.MustCompile("\x1b\\[[0-9;]*m")
	coldRE     = regexp.MustCompile(`^(?:==>\s*)?Entropy:\s*([0-9.]+)\s*\+\s*([0-9.]+)\s*=\s*([0-9.]+)\s*$`)
	crinklerRE = regexp.MustCompile(`^Ideal compressed size of data:\s*([0-9.]+)`)
)

// ParseCold reads the data entropy from a line like "==> Entropy: 1234.5 + 321.0 = 1555.5".
func ParseCold(stderr string) (float64, bool) {
	for _, line := range lines(stderr) {
		line = strings.TrimSpace(ansiRE.ReplaceAllString(line, ""))
		if !strings.Contains(line, "Entropy") {
			continue
		}

		m := coldRE.FindStringSubmatch(line)
		if m == nil {
			return 0, false
		}

		return parseNumber(m[1])
	}

	return 0, false
}

// ParseCrinkler reads a line like "Ideal compressed size of data: 1234.56".
func ParseCrinkler(stdout string) (float64, bool) {
	for _, line := range lines(stdout) {
		m := crinklerRE.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}

		return parseNumber(m[1])
	}

	return 0, false
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func lines(s string) []string {
	var result []string

	scanner := bufio.NewScanner(strings.NewReader(s))
	for scanner.Scan() {
		result = append(result, scanner.Text())
	}

	return result
}
