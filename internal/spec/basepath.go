package spec

import (
	"net/url"
	"path"
	"strings"
)

// ResolveBasePath picks the basePath advertised by a declaration. A
// configured value wins. Otherwise the parent of requestURL is used with a
// trailing /resource segment removed, so a declaration served from
// http://host/api/resource/widgets advertises http://host/api. useHTTPS
// upgrades an http scheme.
func ResolveBasePath(configured, requestURL string, useHTTPS bool) string {
	base := strings.TrimSpace(configured)
	if base == "" {
		base = parentURL(strings.TrimSpace(requestURL))
		base = strings.TrimSuffix(strings.TrimRight(base, "/"), "/resource")
	}
	if useHTTPS && strings.HasPrefix(strings.ToLower(base), "http://") {
		base = "https://" + base[len("http://"):]
	}
	return strings.TrimRight(base, "/")
}

func parentURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return path.Dir(strings.TrimRight(raw, "/"))
	}
	u.RawQuery, u.Fragment = "", ""
	u.Path = path.Dir(strings.TrimRight(u.Path, "/"))
	if u.Path == "/" || u.Path == "." {
		u.Path = ""
	}
	return u.String()
}
