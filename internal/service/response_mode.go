package service

import (
	"fmt"
	"html"
	"net/url"
	"sort"
	"strings"

	"github.com/marcelofv/oauth2-core/internal/domain"
)

// ResponseModeEncoder renders the authorization endpoint's output parameters
// into a redirect URI (query or fragment) or an auto-submitting HTML form.
type ResponseModeEncoder struct{}

func NewResponseModeEncoder() *ResponseModeEncoder {
	return &ResponseModeEncoder{}
}

// EncodeRedirect merges params into the redirect URI according to the mode.
// Query mode preserves any parameters already present on the registered URI.
func (e *ResponseModeEncoder) EncodeRedirect(redirectURI string, mode domain.ResponseMode, params map[string]string) (string, error) {
	parsed, err := url.Parse(redirectURI)
	if err != nil {
		return "", fmt.Errorf("failed to parse redirect URI: %w", err)
	}

	switch mode {
	case domain.ResponseModeQuery:
		query := parsed.Query()
		for key, value := range params {
			query.Set(key, value)
		}
		parsed.RawQuery = query.Encode()
	case domain.ResponseModeFragment:
		fragment := url.Values{}
		for key, value := range params {
			fragment.Set(key, value)
		}
		// Registered URIs never carry a fragment, so appending is safe.
		parsed.Fragment = ""
		return parsed.String() + "#" + fragment.Encode(), nil
	default:
		return "", fmt.Errorf("unsupported response mode %q", mode)
	}

	return parsed.String(), nil
}

// EncodeFormPost renders an auto-submitting HTML form posting the parameters
// back to the client's redirect URI (OAuth 2.0 Form Post Response Mode).
func (e *ResponseModeEncoder) EncodeFormPost(redirectURI string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><title>Submit This Form</title></head>")
	b.WriteString("<body onload=\"javascript:document.forms[0].submit()\">")
	b.WriteString(`<form method="post" action="` + html.EscapeString(redirectURI) + `">`)
	for _, key := range keys {
		b.WriteString(`<input type="hidden" name="` + html.EscapeString(key) +
			`" value="` + html.EscapeString(params[key]) + `"/>`)
	}
	b.WriteString("</form></body></html>")

	return b.String()
}
