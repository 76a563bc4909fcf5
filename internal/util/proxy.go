package util

import (
	"net/http"
	"net/url"
)

// NewProxyFunc routes draft downloads through explicit proxies when configured,
// otherwise through HTTP_PROXY/HTTPS_PROXY/NO_PROXY from the environment.
// Unparsable proxy URLs surface as request errors.
func NewProxyFunc(httpProxy, httpsProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	return func(req *http.Request) (*url.URL, error) {
		switch {
		case req.URL.Scheme == "https" && httpsProxy != "":
			return url.Parse(httpsProxy)
		case httpProxy != "":
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}
