package core

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

type converter string

const (
	convLiteral converter = ""
	convInt     converter = "int"
	convStr     converter = "str"
	convPath    converter = "path"
)

type segment struct {
	literal string
	name    string
	conv    converter
}

// pattern is a compiled route such as /menu/group/<id:int>/filterby/<filter:int>.
type pattern struct {
	raw      string
	segments []segment
}

func compilePattern(raw string) pattern {
	p := pattern{raw: raw}
	for _, part := range splitPath(raw) {
		if strings.HasPrefix(part, "<") && strings.HasSuffix(part, ">") {
			name, conv, ok := strings.Cut(part[1:len(part)-1], ":")
			if !ok {
				conv = string(convStr)
			}
			p.segments = append(p.segments, segment{name: name, conv: converter(conv)})
			continue
		}
		p.segments = append(p.segments, segment{literal: part})
	}
	return p
}

// params holds the typed values extracted from a path.
type params struct {
	ints map[string]int
	strs map[string]string
}

func (p params) Int(name string) int       { return p.ints[name] }
func (p params) String(name string) string { return p.strs[name] }

// match reports whether parts have the shape of the pattern and, if so,
// parses its parameters. A shape match with bad parameters returns an error.
func (p pattern) match(parts []string) (params, bool, error) {
	out := params{ints: map[string]int{}, strs: map[string]string{}}
	n := len(p.segments)
	rest := n > 0 && p.segments[n-1].conv == convPath
	if rest {
		if len(parts) < n {
			return out, false, nil
		}
	} else if len(parts) != n {
		return out, false, nil
	}
	for i, seg := range p.segments {
		if seg.conv == convLiteral && parts[i] != seg.literal {
			return out, false, nil
		}
	}

	for i, seg := range p.segments {
		switch seg.conv {
		case convLiteral:
		case convInt:
			v, err := parseStrictInt(parts[i])
			if err != nil {
				return out, true, paramError(p.raw, seg.name, parts[i], err)
			}
			out.ints[seg.name] = v
		case convStr:
			v, err := url.PathUnescape(parts[i])
			if err != nil || v == "" {
				return out, true, paramError(p.raw, seg.name, parts[i], err)
			}
			out.strs[seg.name] = v
		case convPath:
			joined := strings.Join(parts[i:], "/")
			v, err := url.PathUnescape(joined)
			if err != nil || v == "" {
				return out, true, paramError(p.raw, seg.name, joined, err)
			}
			out.strs[seg.name] = v
		default:
			return out, true, paramError(p.raw, seg.name, parts[i], fmt.Errorf("unknown converter %q", seg.conv))
		}
	}
	return out, true, nil
}

// prefixOf reports whether parts start with the pattern's leading literals.
// Patterns without a leading literal never claim a prefix.
func (p pattern) prefixOf(parts []string) bool {
	lead := 0
	for _, seg := range p.segments {
		if seg.conv != convLiteral {
			break
		}
		lead++
	}
	if lead == 0 || len(parts) < lead {
		return false
	}
	for i := 0; i < lead; i++ {
		if parts[i] != p.segments[i].literal {
			return false
		}
	}
	return true
}

func parseStrictInt(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty integer")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("not an integer: %q", s)
		}
	}
	return strconv.Atoi(s)
}

func paramError(route, name, value string, cause error) error {
	return &Error{Kind: KindParam, Msg: fmt.Sprintf("bad parameter %s=%q for %s", name, value, route), Err: cause}
}

// normalizePath accepts a bare path or a full plugin URL and returns its
// escaped path segments. The root path yields no segments.
func normalizePath(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	path := raw
	if strings.Contains(raw, "://") || strings.ContainsAny(raw, "?#") {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, &Error{Kind: KindNotFound, Msg: fmt.Sprintf("unparseable path %q", raw), Err: err}
		}
		path = u.EscapedPath()
	}
	return splitPath(path), nil
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
