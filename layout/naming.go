package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// Naming symbols.
const (
	// Separator joins element names into a path.
	Separator = "::"

	// DefaultName is the name given to an unnamed instance.
	DefaultName = "NoName"

	// This designates the enclosing pipeline in a connection. It is reserved
	// and cannot be used as an element name.
	This = "THIS"

	// Wildcard designates the only port of a direction.
	Wildcard = "*"

	beginType = "<"
	endType   = ">"
	portMark  = "|"
)

var illegalSymbols = []string{Separator, beginType, endType, portMark}

// ValidateName checks that name is not empty and contains none of the
// structural symbols "::", "<", ">" and "|".
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	for _, s := range illegalSymbols {
		if strings.Contains(name, s) {
			return fmt.Errorf("%w: %q contains illegal symbol %q", ErrInvalidName, name, s)
		}
	}
	return nil
}

// ExtendedName returns the display form of a named component, "name<Type>".
func ExtendedName(name, typeName string) string {
	return name + beginType + typeName + endType
}

// ExtendedPortName returns the display form of a port, "name|index|".
func ExtendedPortName(name string, index int) string {
	return name + portMark + strconv.Itoa(index) + portMark
}

// JoinPath joins element names with the separator.
func JoinPath(names ...string) string {
	return strings.Join(names, Separator)
}

// SplitPath splits a qualified path such as "Main<Pipeline>::Pass::outTex|0|"
// into its names, dropping type and port qualifiers.
func SplitPath(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidName)
	}
	stripped, err := stripPortQualifiers(path)
	if err != nil {
		return nil, err
	}
	if stripped, err = stripTypeQualifiers(stripped); err != nil {
		return nil, err
	}

	parts := strings.Split(stripped, Separator)
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w: empty element in path %q", ErrInvalidName, path)
		}
	}
	return parts, nil
}

func stripPortQualifiers(s string) (string, error) {
	if strings.Count(s, portMark)%2 != 0 {
		return "", fmt.Errorf("%w: unbalanced %q in %q", ErrInvalidName, portMark, s)
	}
	var b strings.Builder
	inside := false
	for _, part := range strings.SplitAfter(s, portMark) {
		if !inside {
			b.WriteString(strings.TrimSuffix(part, portMark))
		}
		if strings.HasSuffix(part, portMark) {
			inside = !inside
		}
	}
	return b.String(), nil
}

func stripTypeQualifiers(s string) (string, error) {
	var b strings.Builder
	for {
		begin := strings.Index(s, beginType)
		if begin < 0 {
			break
		}
		end := strings.Index(s[begin:], endType)
		if end < 0 {
			return "", fmt.Errorf("%w: unbalanced %q in %q", ErrInvalidName, beginType, s)
		}
		if strings.Contains(s[:begin], endType) {
			return "", fmt.Errorf("%w: unbalanced %q in %q", ErrInvalidName, endType, s)
		}
		b.WriteString(s[:begin])
		s = s[begin+end+1:]
	}
	if strings.Contains(s, endType) {
		return "", fmt.Errorf("%w: unbalanced %q in %q", ErrInvalidName, endType, s)
	}
	b.WriteString(s)
	return b.String(), nil
}
