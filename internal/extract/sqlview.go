package extract

import (
	"fmt"
	"regexp"
)

// SQLViewExtractor handles SQL files that define a view. Recognized shapes:
//
//   - Target: the first CREATE [OR REPLACE] VIEW [IF NOT EXISTS] <name>
//     statement; the name may be qualified or bare.
//   - Sources: every qualified db.table reference following a FROM or JOIN
//     keyword, nested subqueries included. Bare identifiers after FROM/JOIN
//     are not collected, they are almost always CTE names or aliases.
//
// Comments and string literals are blanked before scanning, so references
// inside them are never extracted.
type SQLViewExtractor struct{}

var (
	viewTargetPattern = regexp.MustCompile(`(?i)\bcreate\s+(?:or\s+replace\s+)?view\s+(?:if\s+not\s+exists\s+)?(\w+(?:\.\w+)*)`)
	fromJoinPattern   = regexp.MustCompile(`(?i)\b(?:from|join)\s+(\w+(?:\.\w+)+)`)
)

// Extract returns the view name as the single target and the qualified
// FROM/JOIN references as sources. A file without a CREATE VIEW statement
// yields ErrNoTargetFound; any sources found so far are still returned.
func (SQLViewExtractor) Extract(text string) (Result, error) {
	clean := stripSQL(text)

	var res Result
	for _, m := range fromJoinPattern.FindAllStringSubmatch(clean, -1) {
		res.Sources = append(res.Sources, m[1])
	}

	m := viewTargetPattern.FindStringSubmatch(clean)
	if m == nil {
		return res, fmt.Errorf("%w: no CREATE VIEW statement", ErrNoTargetFound)
	}
	res.Targets = append(res.Targets, m[1])
	return res, nil
}

// stripSQL blanks line comments, block comments and quoted strings with
// spaces. Newlines are kept so the output has the same line structure as the
// input.
func stripSQL(text string) string {
	out := []byte(text)
	i, n := 0, len(text)
	for i < n {
		switch {
		case text[i] == '-' && i+1 < n && text[i+1] == '-':
			for i < n && text[i] != '\n' {
				out[i] = ' '
				i++
			}
		case text[i] == '/' && i+1 < n && text[i+1] == '*':
			out[i], out[i+1] = ' ', ' '
			i += 2
			for i < n {
				if text[i] == '*' && i+1 < n && text[i+1] == '/' {
					out[i], out[i+1] = ' ', ' '
					i += 2
					break
				}
				if text[i] != '\n' {
					out[i] = ' '
				}
				i++
			}
		case text[i] == '\'' || text[i] == '"':
			q := text[i]
			out[i] = ' '
			i++
			for i < n {
				if text[i] == q {
					// doubled quote escapes the delimiter
					if i+1 < n && text[i+1] == q {
						out[i], out[i+1] = ' ', ' '
						i += 2
						continue
					}
					out[i] = ' '
					i++
					break
				}
				if text[i] != '\n' {
					out[i] = ' '
				}
				i++
			}
		default:
			i++
		}
	}
	return string(out)
}
