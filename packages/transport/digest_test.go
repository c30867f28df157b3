package transport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChallenge(t *testing.T) {
	scheme, params := ParseChallenge(`Digest realm="test@host.com", qop="auth,auth-int", nonce="abc123", opaque=xyz`)
	assert.Equal(t, "Digest", scheme)
	assert.Equal(t, map[string]string{
		"realm":  "test@host.com",
		"qop":    "auth,auth-int",
		"nonce":  "abc123",
		"opaque": "xyz",
	}, params)

	scheme, params = ParseChallenge(`Basic realm="vault"`)
	assert.Equal(t, "Basic", scheme)
	assert.Equal(t, "vault", params["realm"])

	scheme, params = ParseChallenge("Negotiate")
	assert.Equal(t, "Negotiate", scheme)
	assert.Empty(t, params)
}

func TestDigestAuth_Header(t *testing.T) {
	// RFC 2617 section 3.5 example
	d := &digestAuth{
		username: "Mufasa",
		password: "Circle Of Life",
		realm:    "testrealm@host.com",
		nonce:    "dcd98b7102dd2f0e8b11d0f600bfb0c093",
		uri:      "/dir/index.html",
		qop:      "auth",
		nc:       "00000001",
		cnonce:   "0a4f113b",
		opaque:   "5ccc069c403ebaf9f0171e9517f40e41",
		method:   "GET",
	}
	assert.Equal(t, "6629fae49393a05397450978507c4ef1", d.response())

	h := d.header()
	require.True(t, strings.HasPrefix(h, "Digest "))
	_, params := ParseChallenge(h)
	assert.Equal(t, "6629fae49393a05397450978507c4ef1", params["response"])
	assert.Equal(t, "00000001", params["nc"])
	assert.Equal(t, "5ccc069c403ebaf9f0171e9517f40e41", params["opaque"])
}

func TestDigestAuth_NoQop(t *testing.T) {
	d := &digestAuth{username: "u", password: "p", realm: "r", nonce: "n", uri: "/", method: "GET"}
	want := md5Hex(md5Hex("u:r:p") + ":n:" + md5Hex("GET:/"))
	assert.Equal(t, want, d.response())
	assert.NotContains(t, d.header(), "qop=")
}

func TestGenerateCnonce(t *testing.T) {
	a, err := GenerateCnonce()
	require.NoError(t, err)
	b, err := GenerateCnonce()
	require.NoError(t, err)
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
}
