package portal

import (
	"bytes"
	"errors"
	"mime"
	"mime/multipart"
	"net/url"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/mapstructure"
)

const maxFormMemory = 1 << 20

// RegistrationRequest is one visitor submission. Empty and absent fields are equivalent.
type RegistrationRequest struct {
	Email     string `json:"email"`
	Whatsapp  string `json:"whatsapp"`
	Mac       string `json:"mac"`
	IP        string `json:"ip"`
	LinkLogin string `json:"link_login"`
}

type rawRequest struct {
	Email        string `mapstructure:"email"`
	Whatsapp     string `mapstructure:"whatsapp"`
	Mac          string `mapstructure:"mac"`
	IP           string `mapstructure:"ip"`
	LinkLogin    string `mapstructure:"link_login"`
	LinkLoginAlt string `mapstructure:"linkLogin"`
}

// ParseRequest reads a registration from a JSON, urlencoded or multipart body
// selected by contentType. Missing keys yield empty fields; values are trimmed.
func ParseRequest(contentType string, body []byte) (*RegistrationRequest, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, &UnsupportedMediaTypeError{ContentType: contentType}
	}

	var raw rawRequest
	switch mediaType {
	case "application/json":
		raw, err = decodeJSON(body)
	case "application/x-www-form-urlencoded":
		var values url.Values
		values, err = url.ParseQuery(string(body))
		raw = fromValues(values)
	case "multipart/form-data":
		raw, err = decodeMultipart(body, params["boundary"])
	default:
		return nil, &UnsupportedMediaTypeError{ContentType: mediaType}
	}
	if err != nil {
		return nil, &ValidationError{Reason: "Malformed request body: " + err.Error()}
	}

	req := &RegistrationRequest{
		Email:     raw.Email,
		Whatsapp:  raw.Whatsapp,
		Mac:       raw.Mac,
		IP:        raw.IP,
		LinkLogin: raw.LinkLogin,
	}
	if req.LinkLogin == "" {
		req.LinkLogin = raw.LinkLoginAlt
	}
	req.trim()
	return req, nil
}

func (r *RegistrationRequest) trim() {
	r.Email = strings.TrimSpace(r.Email)
	r.Whatsapp = strings.TrimSpace(r.Whatsapp)
	r.Mac = strings.TrimSpace(r.Mac)
	r.IP = strings.TrimSpace(r.IP)
	r.LinkLogin = strings.TrimSpace(r.LinkLogin)
}

func decodeJSON(body []byte) (rawRequest, error) {
	var raw rawRequest
	if len(bytes.TrimSpace(body)) == 0 {
		return raw, nil
	}
	var fields map[string]interface{}
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(body, &fields); err != nil {
		return raw, err
	}
	// WeakDecode turns numeric whatsapp numbers into strings; null stays empty.
	err := mapstructure.WeakDecode(fields, &raw)
	return raw, err
}

func decodeMultipart(body []byte, boundary string) (rawRequest, error) {
	if boundary == "" {
		return rawRequest{}, errors.New("missing multipart boundary")
	}
	form, err := multipart.NewReader(bytes.NewReader(body), boundary).ReadForm(maxFormMemory)
	if err != nil {
		return rawRequest{}, err
	}
	defer func() { _ = form.RemoveAll() }()
	return fromValues(url.Values(form.Value)), nil
}

func fromValues(values url.Values) rawRequest {
	return rawRequest{
		Email:        values.Get("email"),
		Whatsapp:     values.Get("whatsapp"),
		Mac:          values.Get("mac"),
		IP:           values.Get("ip"),
		LinkLogin:    values.Get("link_login"),
		LinkLoginAlt: values.Get("linkLogin"),
	}
}
