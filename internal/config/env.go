package config

import (
	"os"
	"regexp"
)

// envPattern matches ${VAR} and ${VAR:-default}.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// InterpolateEnv resolves ${VAR} and ${VAR:-default} placeholders against the
// process environment. Placeholders whose variable is unset and carry no
// default are preserved verbatim, so prompt-template expressions like
// "${question}" survive env resolution untouched.
func InterpolateEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envPattern.FindStringSubmatch(match)
		name, hasDefault, def := groups[1], groups[2] != "", groups[3]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		if hasDefault {
			return def
		}
		return match
	})
}
