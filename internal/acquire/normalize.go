package acquire

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/idna"

	"github.com/ppiankov/darklens/internal/model"
)

// NormalizeURL trims whitespace, strips one trailing slash and adds https://
// when no http(s) scheme is present. It fails with InvalidUrl if the result is
// not a well-formed URL with a valid host.
func NormalizeURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "/")

	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		s = "https://" + s
	}

	if _, err := captureTarget(s); err != nil {
		return "", model.NewError(model.ErrInvalidURL, raw, err)
	}
	return s, nil
}

// captureTarget parses a normalized URL and converts an internationalized host
// to its ASCII form for the capture request
func captureTarget(normalized string) (string, error) {
	u, err := url.Parse(normalized)
	if err != nil {
		return "", err
	}

	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("missing host")
	}

	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("invalid host %q: %w", host, err)
	}

	if ascii != host {
		if port := u.Port(); port != "" {
			u.Host = ascii + ":" + port
		} else {
			u.Host = ascii
		}
		return u.String(), nil
	}
	return normalized, nil
}
