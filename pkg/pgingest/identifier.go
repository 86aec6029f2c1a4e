package pgingest

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierPattern allows lowercase letters, digits and underscores,
// starting with a letter or underscore. Lowercase only, so the quoted and
// unquoted forms of a name refer to the same object.
var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// reservedPrefix is claimed by system schemas; CREATE SCHEMA rejects it.
const reservedPrefix = "pg_"

// reservedNames are system schemas that never hold tenant data.
var reservedNames = map[string]bool{
	"information_schema": true,
}

// ValidateIdentifier checks that name is safe to place into DDL as a schema
// or table name. kind names the value in the error ("tenant", "table").
// Every failure wraps ErrConfig.
func ValidateIdentifier(kind, name string) error {
	if name == "" {
		return fmt.Errorf("%s identifier is empty: %w", kind, ErrConfig)
	}
	if len(name) > MaxIdentifierLength {
		return fmt.Errorf("%s identifier %q exceeds %d characters: %w", kind, name, MaxIdentifierLength, ErrConfig)
	}
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%s identifier %q must match %s: %w", kind, name, identifierPattern.String(), ErrConfig)
	}
	if strings.HasPrefix(name, reservedPrefix) || reservedNames[name] {
		return fmt.Errorf("%s identifier %q is reserved for system schemas: %w", kind, name, ErrConfig)
	}
	return nil
}
