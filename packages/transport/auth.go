package transport

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/abdul-hamid-achik/hitconn/packages/conn"
)

// authorize asks the connection's authenticator for credentials matching the
// challenge in resp and returns the header to resend with. An empty key means
// the challenge carried no scheme this client can answer.
func (c *Client) authorize(req *conn.Request, resp *http.Response) (key, value string, err error) {
	proxy := resp.StatusCode == http.StatusProxyAuthRequired
	challengeHeader, authHeader := "WWW-Authenticate", "Authorization"
	if proxy {
		challengeHeader, authHeader = "Proxy-Authenticate", "Proxy-Authorization"
	}

	raw := resp.Header.Get(challengeHeader)
	if raw == "" {
		return "", "", nil
	}
	scheme, params := ParseChallenge(raw)

	creds, err := req.Authenticator.Authenticate(conn.Challenge{
		Target: req.URL,
		Scheme: scheme,
		Realm:  params["realm"],
		Proxy:  proxy,
	})
	if err != nil {
		return "", "", fmt.Errorf("authenticator: %w", err)
	}

	switch strings.ToLower(scheme) {
	case "basic":
		return authHeader, basicAuth(creds), nil
	case "digest":
		d := &digestAuth{
			username: creds.Username,
			password: creds.Password,
			realm:    params["realm"],
			nonce:    params["nonce"],
			opaque:   params["opaque"],
			method:   req.Method,
			uri:      req.URL.RequestURI(),
		}
		if qop := params["qop"]; qop != "" {
			if !hasToken(qop, "auth") {
				return "", "", fmt.Errorf("unsupported digest qop %q", qop)
			}
			cnonce, err := GenerateCnonce()
			if err != nil {
				return "", "", err
			}
			d.qop = "auth"
			d.nc = "00000001"
			d.cnonce = cnonce
		}
		return authHeader, d.header(), nil
	}
	return "", "", nil
}

func basicAuth(creds conn.Credentials) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(creds.Username+":"+creds.Password))
}

func hasToken(list, token string) bool {
	for _, t := range strings.Split(list, ",") {
		if strings.EqualFold(strings.TrimSpace(t), token) {
			return true
		}
	}
	return false
}
