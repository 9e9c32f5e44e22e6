package elemental

import (
	"crypto/md5" //nolint:gosec // the appliance verifies md5 digests
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"
)

// Auth header names of the appliance's signed-request scheme.
const (
	HeaderAuthUser    = "X-Auth-User"
	HeaderAuthExpires = "X-Auth-Expires"
	HeaderAuthKey     = "X-Auth-Key"
)

const (
	contentTypeXML  = "application/xml"
	contentTypeForm = "application/x-www-form-urlencoded; charset=UTF-8"

	// authWindowSeconds is how long a signed request stays valid.
	authWindowSeconds = 120
)

// SignV1MD5 computes the X-Auth-Key value of the appliance's v1 auth scheme:
//
//	digest = md5hex(path + user + apiKey + expires)
//	key    = md5hex(apiKey + digest)
//
// path is the request URL path without query string; expires is unix seconds.
func SignV1MD5(path, user, apiKey string, expires int64) string {
	digest := md5Hex(path + user + apiKey + strconv.FormatInt(expires, 10))
	return md5Hex(apiKey + digest)
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// Headers returns the request headers for rawURL. Auth headers are only
// present when the client was built with credentials.
func (c *Client) Headers(rawURL string) map[string]string {
	headers := map[string]string{
		"Accept":       contentTypeXML,
		"Content-Type": contentTypeXML,
	}
	if c.user == "" && c.apiKey == "" {
		return headers
	}

	expires := c.now().Unix() + authWindowSeconds
	headers[HeaderAuthUser] = c.user
	headers[HeaderAuthExpires] = strconv.FormatInt(expires, 10)
	headers[HeaderAuthKey] = SignV1MD5(requestPath(rawURL), c.user, c.apiKey, expires)
	return headers
}

// requestPath is the signed path. Percent-escapes are kept as sent on the wire.
func requestPath(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		return u.EscapedPath()
	}
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
