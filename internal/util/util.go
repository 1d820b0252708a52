package util

import (
	"strings"
)

// a handful of reserved words that must always be quoted when used as
// an identifier. Not exhaustive; it covers what commonly shows up as a
// schema or role name.
var reserved = map[string]struct{}{
	"all": {}, "analyse": {}, "analyze": {}, "and": {}, "any": {},
	"array": {}, "as": {}, "asc": {}, "check": {}, "column": {},
	"constraint": {}, "create": {}, "default": {}, "desc": {}, "do": {},
	"else": {}, "end": {}, "for": {}, "from": {}, "grant": {}, "group": {},
	"in": {}, "into": {}, "not": {}, "null": {}, "on": {}, "or": {},
	"order": {}, "select": {}, "table": {}, "to": {}, "user": {},
	"where": {}, "with": {},
}

// QuoteIdent returns name as a PostgreSQL identifier, surrounding it in
// double quotes only when it would not survive unquoted.
func QuoteIdent(name string) string {
	if name != "" && !needsQuote(name) {
		return name
	}
	return Doublequote(name)
}

func needsQuote(name string) bool {
	if _, ok := reserved[name]; ok {
		return true
	}
	for i, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c == '_':
		case c >= '0' && c <= '9', c == '$':
			if i == 0 {
				return true
			}
		default:
			return true
		}
	}
	return false
}

// Doublequote surrounds the given string in double quotes, doubling any
// embedded double quote
func Doublequote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
