package explorer

import (
	"fmt"
	"net/url"
	"strings"
)

// pathSegment is one piece of a parsed path template.
type pathSegment struct {
	literal  string
	param    string
	optional bool
}

// parseTemplate splits a template such as "/api/v2/tokens/:hash{/:id}" into
// literal and parameter segments. A parameter name runs until the next '/',
// '{', '}' or '.' character.
func parseTemplate(template string) []pathSegment {
	var (
		segments []pathSegment
		literal  strings.Builder
	)

	flush := func() {
		if literal.Len() > 0 {
			segments = append(segments, pathSegment{literal: literal.String()})
			literal.Reset()
		}
	}

	for i := 0; i < len(template); {
		switch {
		case strings.HasPrefix(template[i:], "{/:"):
			end := strings.IndexByte(template[i:], '}')
			if end < 0 {
				literal.WriteString(template[i:])
				i = len(template)

				continue
			}

			flush()
			segments = append(segments, pathSegment{param: template[i+3 : i+end], optional: true})
			i += end + 1
		case template[i] == ':':
			j := i + 1
			for j < len(template) && !strings.ContainsRune("/{}.", rune(template[j])) {
				j++
			}

			flush()
			segments = append(segments, pathSegment{param: template[i+1 : j]})
			i = j
		default:
			literal.WriteByte(template[i])
			i++
		}
	}

	flush()

	return segments
}

// templateParams returns the parameter names of a template in order, and
// which of them are optional.
func templateParams(template string) (names []string, optional map[string]bool) {
	optional = make(map[string]bool)

	for _, seg := range parseTemplate(template) {
		if seg.param == "" {
			continue
		}

		names = append(names, seg.param)
		optional[seg.param] = seg.optional
	}

	return names, optional
}

// BuildPath substitutes the path parameters of desc into its template.
// Optional trailing segments are emitted only when their parameter is given
// and non-empty. Values are path-escaped.
func BuildPath(desc *ResourceDescriptor, pathParams map[string]string) (string, error) {
	var path strings.Builder

	for _, seg := range parseTemplate(desc.Path) {
		if seg.param == "" {
			path.WriteString(seg.literal)

			continue
		}

		value, ok := pathParams[seg.param]
		if !ok || value == "" {
			if seg.optional {
				continue
			}

			return "", fmt.Errorf("%w: %q for resource %q", ErrMissingPathParam, seg.param, desc.Name)
		}

		if seg.optional {
			path.WriteByte('/')
		}

		path.WriteString(url.PathEscape(value))
	}

	return path.String(), nil
}
