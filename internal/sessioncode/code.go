// Package sessioncode turns session ids into short shareable words and back.
//
// A code is adjective-animal-dish, read as a mixed-radix number with the adjective as
// the lowest digit. Ids past the word space carry the overflow as a trailing number:
// tiny-kitten-pancake-2.
package sessioncode

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/dkeye/Livecast/internal/domain"
)

const linkPath = "live"

var ErrInvalidCode = errors.New("invalid session code")

var index = func() [3]map[string]uint64 {
	var idx [3]map[string]uint64
	for i, words := range [][]string{adjectives, animals, dishes} {
		idx[i] = make(map[string]uint64, len(words))
		for n, w := range words {
			idx[i][w] = uint64(n)
		}
	}
	return idx
}()

func Encode(sid domain.SessionID) string {
	n := uint64(sid)
	a := n % uint64(len(adjectives))
	n /= uint64(len(adjectives))
	b := n % uint64(len(animals))
	n /= uint64(len(animals))
	c := n % uint64(len(dishes))
	n /= uint64(len(dishes))

	code := adjectives[a] + "-" + animals[b] + "-" + dishes[c]
	if n > 0 {
		code += "-" + strconv.FormatUint(n, 10)
	}
	return code
}

func Decode(code string) (domain.SessionID, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(code)), "-")
	if len(parts) != 3 && len(parts) != 4 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}
	var digits [3]uint64
	for i := 0; i < 3; i++ {
		d, ok := index[i][parts[i]]
		if !ok {
			return 0, fmt.Errorf("%w: unknown word %q", ErrInvalidCode, parts[i])
		}
		digits[i] = d
	}
	var high uint64
	if len(parts) == 4 {
		var err error
		high, err = strconv.ParseUint(parts[3], 10, 64)
		if err != nil || high == 0 {
			return 0, fmt.Errorf("%w: bad suffix %q", ErrInvalidCode, parts[3])
		}
	}
	space := uint64(len(adjectives)) * uint64(len(animals)) * uint64(len(dishes))
	low := (digits[2]*uint64(len(animals))+digits[1])*uint64(len(adjectives)) + digits[0]
	if high > (math.MaxUint64-low)/space {
		return 0, fmt.Errorf("%w: suffix %q out of range", ErrInvalidCode, parts[3])
	}
	return domain.SessionID(high*space + low), nil
}

// Link builds a shareable link for sid under base, e.g. https://host/live/tiny-kitten-pancake.
func Link(base string, sid domain.SessionID) string {
	return strings.TrimSuffix(base, "/") + "/" + linkPath + "/" + Encode(sid)
}

// Parse accepts a code, a decimal session id, or a link carrying either in its
// path (/live/<code>) or fragment (#<code>).
func Parse(s string) (domain.SessionID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidCode
	}
	if strings.Contains(s, "/") || strings.HasPrefix(s, "#") {
		ref, err := fromURL(s)
		if err != nil {
			return 0, err
		}
		s = ref
	}
	if sid, err := domain.ParseSessionID(s); err == nil {
		return sid, nil
	}
	return Decode(s)
}

func fromURL(s string) (string, error) {
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	if u.Fragment != "" {
		return u.Fragment, nil
	}
	parts := strings.Split(strings.TrimSuffix(u.Path, "/"), "/")
	for i, part := range parts {
		if part == linkPath && i+1 < len(parts) && parts[i+1] != "" {
			return parts[i+1], nil
		}
	}
	return "", fmt.Errorf("%w: no session in %q", ErrInvalidCode, s)
}
