package model

import (
	"strings"

	"golang.org/x/oauth2"
)

// ResourceServerBaseURIField is the token response field holding the API base URI.
const ResourceServerBaseURIField = "resource_server_base_uri"

// Session is the result of authentication. It lives for one run and is never refreshed.
type Session struct {
	Token      *oauth2.Token
	APIBaseURL string
}

// BearerToken returns the raw access token, or "" for an empty session.
func (s Session) BearerToken() string {
	if s.Token == nil {
		return ""
	}
	return s.Token.AccessToken
}

// ReportJobsURL returns "{base}services/{version}/report-jobs/". The base URI from the
// token response normally ends in "/"; one is added when it does not.
func (s Session) ReportJobsURL(apiVersion string) string {
	base := s.APIBaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + "services/" + strings.Trim(apiVersion, "/") + "/report-jobs/"
}
