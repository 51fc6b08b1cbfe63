package portal

import (
	"bytes"
	"html/template"
	"net/http"
	"net/url"

	jsoniter "github.com/json-iterator/go"
)

// LoginResponse is the transport-neutral final answer to the client.
type LoginResponse struct {
	Status      int
	Location    string
	ContentType string
	Body        []byte
}

var loginFormTemplate = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Connecting...</title>
</head>
<body onload="document.forms['login'].submit()">
<form name="login" action="{{.Action}}" method="post">
<input type="hidden" name="username" value="{{.Username}}">
<input type="hidden" name="password" value="{{.Password}}">
<input type="hidden" name="popup" value="{{.Popup}}">
<noscript><input type="submit" value="Continue"></noscript>
</form>
</body>
</html>
`))

// LoginResponder completes the captive-portal login with the derived credentials.
type LoginResponder struct {
	mode  ResponseMode
	popup bool
}

func NewLoginResponder(mode ResponseMode, popup bool) *LoginResponder {
	return &LoginResponder{mode: mode, popup: popup}
}

// Respond builds a redirect or an auto-submitting form targeting linkLogin, or a
// JSON acknowledgement when there is no login target.
func (r *LoginResponder) Respond(creds Credentials, linkLogin string) (*LoginResponse, error) {
	if linkLogin == "" {
		body, err := jsoniter.Marshal(map[string]bool{"success": true})
		if err != nil {
			return nil, err
		}
		return &LoginResponse{Status: http.StatusOK, ContentType: "application/json", Body: body}, nil
	}

	if r.mode == ResponseRedirect {
		location, err := r.redirectURL(creds, linkLogin)
		if err != nil {
			return nil, err
		}
		return &LoginResponse{Status: http.StatusFound, Location: location}, nil
	}

	popup := "false"
	if r.popup {
		popup = "true"
	}
	var buf bytes.Buffer
	err := loginFormTemplate.Execute(&buf, map[string]string{
		"Action":   linkLogin,
		"Username": creds.Username,
		"Password": creds.Password,
		"Popup":    popup,
	})
	if err != nil {
		return nil, err
	}
	return &LoginResponse{
		Status:      http.StatusOK,
		ContentType: "text/html; charset=utf-8",
		Body:        buf.Bytes(),
	}, nil
}

func (r *LoginResponder) redirectURL(creds Credentials, linkLogin string) (string, error) {
	u, err := url.Parse(linkLogin)
	if err != nil {
		return "", err
	}
	values := u.Query()
	values.Set("username", creds.Username)
	values.Set("password", creds.Password)
	if r.popup {
		values.Set("popup", "true")
	}
	u.RawQuery = values.Encode()
	return u.String(), nil
}
