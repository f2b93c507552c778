package recipes

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var ErrBadTuple = errors.New("malformed <count>*<type> tuple")

// ParseTuple splits "<count>*<type>" into its parts. The type is trimmed
// and NFC-normalised so ids typed on different platforms compare equal.
func ParseTuple(s string) (count int, typ string, err error) {
	n, t, ok := strings.Cut(s, "*")
	if !ok {
		return 0, "", fmt.Errorf("%w: %q", ErrBadTuple, s)
	}
	count, err = strconv.Atoi(strings.TrimSpace(n))
	if err != nil || count <= 0 {
		return 0, "", fmt.Errorf("%w: %q: count must be a positive integer", ErrBadTuple, s)
	}
	typ = norm.NFC.String(strings.TrimSpace(t))
	if typ == "" {
		return 0, "", fmt.Errorf("%w: %q: empty type", ErrBadTuple, s)
	}
	return count, typ, nil
}

// FormatTuple is the inverse of ParseTuple.
func FormatTuple(count int, typ string) string {
	return strconv.Itoa(count) + "*" + typ
}
