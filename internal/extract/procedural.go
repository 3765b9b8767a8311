package extract

import (
	"regexp"
	"sort"
	"strings"
)

// ProceduralExtractor handles data-processing scripts (PySpark, Scala).
// Recognized write markers:
//
//   - .insertInto(<arg>), .saveAsTable(<arg>) and .option('table', <arg>)
//     where <arg> is a quoted literal or a variable bound by a simple
//     string assignment earlier in the script. Arguments that resolve to
//     neither are skipped.
//   - A header comment section opened by a line matching "output table(s):"
//     (any case). Each following comment line contributes its first
//     db.table shaped token; the section closes at the first non-comment
//     line, banner line or other "<label>:" header.
//
// Sources are spark.table(...) literal reads plus qualified FROM/JOIN
// references inside string literals (embedded SQL). Comment lines never
// contribute sources.
type ProceduralExtractor struct{}

var (
	insertIntoPattern  = regexp.MustCompile(`\.insertInto\(\s*([^),]+)`)
	saveAsTablePattern = regexp.MustCompile(`\.saveAsTable\(\s*([^),]+)`)
	optionTablePattern = regexp.MustCompile(`\.option\(\s*['"]table['"]\s*,\s*([^),]+)`)
	sparkTablePattern  = regexp.MustCompile(`\bspark\.table\(\s*['"]([\w.]+)['"]`)

	// name = 'db.table', with optional Scala val/var binding
	assignPattern = regexp.MustCompile(`(?m)^\s*(?:val\s+|var\s+)?(\w+)\s*=\s*['"]([^'"\n]+)['"]`)

	outputHeaderPattern   = regexp.MustCompile(`(?i)\boutput\s+tables?\s*(?:\(s\))?\s*:`)
	sectionLabelPattern   = regexp.MustCompile(`^[\w ()/]+:`)
	qualifiedTokenPattern = regexp.MustCompile(`\w+(?:\.\w+)+`)
	identPattern          = regexp.MustCompile(`^\w+$`)
)

// Extract returns header-declared and marker-written tables as targets, and
// spark.table reads plus embedded-SQL FROM/JOIN references as sources. A
// script without any of those yields an empty Result and no error.
func (ProceduralExtractor) Extract(text string) (Result, error) {
	clean := stripLineComments(text)
	vars := assignments(clean)

	var res Result
	res.Targets = append(res.Targets, headerTargets(text)...)
	for _, hit := range writeMarkerArgs(clean) {
		if target, ok := resolveArg(hit.arg, vars); ok {
			res.Targets = append(res.Targets, target)
		}
	}

	for _, m := range sparkTablePattern.FindAllStringSubmatch(clean, -1) {
		res.Sources = append(res.Sources, m[1])
	}
	embedded := strings.Join(stringContents(clean), "\n")
	for _, m := range fromJoinPattern.FindAllStringSubmatch(embedded, -1) {
		res.Sources = append(res.Sources, m[1])
	}
	return res, nil
}

type markerHit struct {
	pos int
	arg string
}

// writeMarkerArgs collects the first argument of every write marker call,
// ordered by position in the script.
func writeMarkerArgs(text string) []markerHit {
	var hits []markerHit
	for _, p := range []*regexp.Regexp{insertIntoPattern, saveAsTablePattern, optionTablePattern} {
		for _, loc := range p.FindAllStringSubmatchIndex(text, -1) {
			hits = append(hits, markerHit{pos: loc[0], arg: text[loc[2]:loc[3]]})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	return hits
}

// resolveArg turns a marker argument into a table name: quoted literals are
// unwrapped, bare identifiers are looked up in the assignment bindings.
func resolveArg(arg string, vars map[string]string) (string, bool) {
	arg = strings.TrimSpace(arg)
	if len(arg) >= 2 {
		if (arg[0] == '\'' && arg[len(arg)-1] == '\'') || (arg[0] == '"' && arg[len(arg)-1] == '"') {
			inner := arg[1 : len(arg)-1]
			return inner, inner != ""
		}
	}
	if identPattern.MatchString(arg) {
		if v, ok := vars[arg]; ok {
			return v, true
		}
	}
	return "", false
}

// assignments collects simple string assignments. The last binding of a name
// wins, matching how the scripts themselves overwrite configuration
// variables before the write call.
func assignments(text string) map[string]string {
	vars := make(map[string]string)
	for _, m := range assignPattern.FindAllStringSubmatch(text, -1) {
		vars[m[1]] = m[2]
	}
	return vars
}

// headerTargets parses the output-table header convention from the raw text.
func headerTargets(text string) []string {
	var targets []string
	inSection := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		marker := commentMarker(trimmed)
		if marker == "" {
			inSection = false
			continue
		}
		if isBanner(trimmed) {
			inSection = false
			continue
		}
		content := strings.TrimSpace(strings.TrimLeft(trimmed, marker))
		if loc := outputHeaderPattern.FindStringIndex(content); loc != nil {
			inSection = true
			// the opening line may carry a table after the colon
			if tok := qualifiedTokenPattern.FindString(content[loc[1]:]); tok != "" {
				targets = append(targets, tok)
			}
			continue
		}
		if !inSection {
			continue
		}
		if sectionLabelPattern.MatchString(content) {
			inSection = false
			continue
		}
		if tok := qualifiedTokenPattern.FindString(content); tok != "" {
			targets = append(targets, tok)
		}
	}
	return targets
}

func commentMarker(line string) string {
	switch {
	case strings.HasPrefix(line, "#"):
		return "#"
	case strings.HasPrefix(line, "//"):
		return "/"
	default:
		return ""
	}
}

func isBanner(line string) bool {
	return strings.HasPrefix(line, "####") || strings.HasPrefix(line, "////")
}

// stripLineComments blanks # and // comments that sit outside string
// literals. Strings, including triple-quoted blocks, are left intact.
func stripLineComments(text string) string {
	out := []byte(text)
	i, n := 0, len(text)
	for i < n {
		switch c := text[i]; c {
		case '#':
			for i < n && text[i] != '\n' {
				out[i] = ' '
				i++
			}
		case '/':
			if i+1 < n && text[i+1] == '/' {
				for i < n && text[i] != '\n' {
					out[i] = ' '
					i++
				}
			} else {
				i++
			}
		case '\'', '"':
			i = skipString(text, i)
		default:
			i++
		}
	}
	return string(out)
}

// stringContents returns the contents of every string literal, triple-quoted
// blocks included. The input must already have comments blanked.
func stringContents(text string) []string {
	var parts []string
	i, n := 0, len(text)
	for i < n {
		c := text[i]
		if c != '\'' && c != '"' {
			i++
			continue
		}
		start, end, next := scanString(text, i)
		parts = append(parts, text[start:end])
		i = next
	}
	return parts
}

// skipString advances past the string literal starting at i.
func skipString(text string, i int) int {
	_, _, next := scanString(text, i)
	return next
}

// scanString locates the body of the string literal starting at i and
// returns the body bounds plus the index just past the closing quote.
// Unterminated literals run to the end of input (or line, for single-quoted
// forms).
func scanString(text string, i int) (start, end, next int) {
	q := text[i]
	n := len(text)
	if i+2 < n && text[i+1] == q && text[i+2] == q {
		i += 3
		start = i
		for i+2 < n && !(text[i] == q && text[i+1] == q && text[i+2] == q) {
			i++
		}
		if i+2 < n {
			return start, i, i + 3
		}
		return start, n, n
	}
	i++
	start = i
	for i < n && text[i] != q && text[i] != '\n' {
		if text[i] == '\\' && i+1 < n {
			i++
		}
		i++
	}
	if i < n && text[i] == q {
		return start, i, i + 1
	}
	return start, i, i
}
