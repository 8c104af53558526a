package dbus

import (
	"regexp"
	"strings"
)

// These patterns encode the naming grammar from the D-Bus specification's
// "Message Protocol" section (valid object paths, interface names, member
// names, and bus names). They are small, fixed, closed-form grammars, so a
// hand-built regexp is the idiomatic stdlib tool here — no ecosystem
// validation library earns its keep over three short regexes.
var (
	pathSegmentRe   = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	nameElementRe   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	uniqueElementRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

func validateObjectPath(p ObjectPath) error {
	s := string(p)
	if s == "" || s[0] != '/' {
		return &InvalidNameError{Kind: "object path", Value: s}
	}
	if s == "/" {
		return nil
	}
	if strings.HasSuffix(s, "/") {
		return &InvalidNameError{Kind: "object path", Value: s}
	}
	for _, seg := range strings.Split(s[1:], "/") {
		if seg == "" || !pathSegmentRe.MatchString(seg) {
			return &InvalidNameError{Kind: "object path", Value: s}
		}
	}
	return nil
}

func validateInterfaceName(s string) error {
	elems := strings.Split(s, ".")
	if len(elems) < 2 {
		return &InvalidNameError{Kind: "interface", Value: s}
	}
	for _, e := range elems {
		if !nameElementRe.MatchString(e) {
			return &InvalidNameError{Kind: "interface", Value: s}
		}
	}
	return nil
}

func validateErrorName(s string) error {
	if err := validateInterfaceName(s); err != nil {
		return &InvalidNameError{Kind: "error name", Value: s}
	}
	return nil
}

func validateMemberName(s string) error {
	if s == "" || strings.Contains(s, ".") || !nameElementRe.MatchString(s) {
		return &InvalidNameError{Kind: "member", Value: s}
	}
	return nil
}

func validateBusName(s string) error {
	if s == "" {
		return &InvalidNameError{Kind: "bus name", Value: s}
	}
	if s[0] == ':' {
		elems := strings.Split(s[1:], ".")
		if len(elems) < 2 {
			return &InvalidNameError{Kind: "bus name", Value: s}
		}
		for _, e := range elems {
			if e == "" || !uniqueElementRe.MatchString(e) {
				return &InvalidNameError{Kind: "bus name", Value: s}
			}
		}
		return nil
	}
	if err := validateInterfaceName(s); err != nil {
		return &InvalidNameError{Kind: "bus name", Value: s}
	}
	return nil
}
