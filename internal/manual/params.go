// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package manual

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// paramSpec describes one allowed converter flag. A nil check means the flag
// takes no value.
type paramSpec struct {
	check func(string) bool
}

var (
	densityRe = regexp.MustCompile(`^([0-9]{1,4})(x([0-9]{1,4}))?$`)
	resizeRe  = regexp.MustCompile(`^([0-9]{1,5})?(x([0-9]{1,5})?)?[%!<>^]?$`)
	colorRe   = regexp.MustCompile(`^([a-zA-Z]{1,32}|#[0-9a-fA-F]{3}|#[0-9a-fA-F]{6})$`)
)

// allowedParams is the complete set of converter flags a manual may request.
var allowedParams = map[string]paramSpec{
	"-density":    {check: validDensity},
	"-quality":    {check: intBetween(1, 100)},
	"-resize":     {check: validResize},
	"-colorspace": {check: oneOf("sRGB", "RGB", "Gray", "CMYK")},
	"-background": {check: colorRe.MatchString},
	"-alpha":      {check: oneOf("remove", "off", "on", "flatten")},
	"-flatten":    {},
	"-strip":      {},
	"-trim":       {},
	"-antialias":  {},
}

// ParseParams splits a render parameter string on whitespace and validates
// every flag and value against the allow-list. The returned slice is safe
// to place in an argument vector.
func ParseParams(s string) ([]string, error) {
	fields := strings.Fields(s)
	args := make([]string, 0, len(fields))

	for i := 0; i < len(fields); i++ {
		flag := fields[i]
		spec, ok := allowedParams[flag]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnrecognizedRenderParameter, flag)
		}
		args = append(args, flag)

		if spec.check == nil {
			continue
		}
		if i+1 >= len(fields) {
			return nil, fmt.Errorf("%w: %s requires a value", ErrUnrecognizedRenderParameter, flag)
		}
		i++
		if !spec.check(fields[i]) {
			return nil, fmt.Errorf("%w: invalid value %q for %s", ErrUnrecognizedRenderParameter, fields[i], flag)
		}
		args = append(args, fields[i])
	}
	return args, nil
}

func validDensity(v string) bool {
	m := densityRe.FindStringSubmatch(v)
	if m == nil {
		return false
	}
	if !intBetween(1, 1200)(m[1]) {
		return false
	}
	return m[3] == "" || intBetween(1, 1200)(m[3])
}

func validResize(v string) bool {
	m := resizeRe.FindStringSubmatch(v)
	// At least one dimension is required.
	return m != nil && (m[1] != "" || m[3] != "")
}

func intBetween(lo, hi int) func(string) bool {
	return func(v string) bool {
		n, err := strconv.Atoi(v)
		return err == nil && n >= lo && n <= hi
	}
}

func oneOf(values ...string) func(string) bool {
	return func(v string) bool {
		for _, allowed := range values {
			if v == allowed {
				return true
			}
		}
		return false
	}
}
