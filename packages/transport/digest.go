package transport

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// digestAuth holds one RFC 2617 digest computation
type digestAuth struct {
	username string
	password string
	realm    string
	nonce    string
	uri      string
	qop      string
	nc       string
	cnonce   string
	opaque   string
	method   string
}

// ParseChallenge splits a WWW-Authenticate value into its scheme and
// parameters. Quoted values may contain commas.
func ParseChallenge(header string) (scheme string, params map[string]string) {
	params = make(map[string]string)
	header = strings.TrimSpace(header)

	if i := strings.IndexByte(header, ' '); i >= 0 {
		scheme, header = header[:i], header[i+1:]
	} else {
		return header, params
	}

	for len(header) > 0 {
		header = strings.TrimLeft(header, " ,")
		eq := strings.IndexByte(header, '=')
		if eq < 0 {
			break
		}
		key := strings.ToLower(strings.TrimSpace(header[:eq]))
		header = strings.TrimLeft(header[eq+1:], " ")

		var value string
		if strings.HasPrefix(header, `"`) {
			end := strings.IndexByte(header[1:], '"')
			if end < 0 {
				value, header = header[1:], ""
			} else {
				value, header = header[1:end+1], header[end+2:]
			}
		} else if comma := strings.IndexByte(header, ','); comma >= 0 {
			value, header = strings.TrimSpace(header[:comma]), header[comma+1:]
		} else {
			value, header = strings.TrimSpace(header), ""
		}
		params[key] = value
	}
	return scheme, params
}

// response computes the digest response hash
func (d *digestAuth) response() string {
	ha1 := md5Hex(fmt.Sprintf("%s:%s:%s", d.username, d.realm, d.password))
	ha2 := md5Hex(fmt.Sprintf("%s:%s", d.method, d.uri))

	if d.qop == "auth" {
		return md5Hex(fmt.Sprintf("%s:%s:%s:%s:%s:%s", ha1, d.nonce, d.nc, d.cnonce, d.qop, ha2))
	}
	return md5Hex(fmt.Sprintf("%s:%s:%s", ha1, d.nonce, ha2))
}

// header builds the Authorization header value
func (d *digestAuth) header() string {
	parts := []string{
		fmt.Sprintf(`username="%s"`, d.username),
		fmt.Sprintf(`realm="%s"`, d.realm),
		fmt.Sprintf(`nonce="%s"`, d.nonce),
		fmt.Sprintf(`uri="%s"`, d.uri),
		fmt.Sprintf(`response="%s"`, d.response()),
	}

	if d.qop != "" {
		parts = append(parts,
			"qop="+d.qop,
			"nc="+d.nc,
			fmt.Sprintf(`cnonce="%s"`, d.cnonce),
		)
	}

	if d.opaque != "" {
		parts = append(parts, fmt.Sprintf(`opaque="%s"`, d.opaque))
	}

	return "Digest " + strings.Join(parts, ", ")
}

// GenerateCnonce generates a random client nonce
func GenerateCnonce() (string, error) {
	b := make([]byte, 8)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
