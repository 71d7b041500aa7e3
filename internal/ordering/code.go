package ordering

import (
	"crypto/rand"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var codePattern = regexp.MustCompile(`^[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

// GenerateOrderCode returns a code like "7KQ2-M0ZD-X4PA-L9TB". Bytes that
// would bias the alphabet are redrawn.
func GenerateOrderCode() (string, error) {
	const groups, groupLen = 4, 4
	limit := byte(256 - 256%len(codeAlphabet))

	out := make([]byte, 0, groups*groupLen+groups-1)
	buf := make([]byte, 32)
	for n := 0; n < groups*groupLen; {
		if _, err := rand.Read(buf); err != nil {
			return "", errors.Wrap(err, "read random bytes")
		}
		for _, b := range buf {
			if b >= limit || n == groups*groupLen {
				continue
			}
			if n > 0 && n%groupLen == 0 {
				out = append(out, '-')
			}
			out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
			n++
		}
	}
	return string(out), nil
}

// NormalizeCode upper-cases and trims a code typed by a customer.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}
