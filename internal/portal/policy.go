package portal

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/c-robinson/iplib"
	"github.com/talkincode/toughportal/config"
	"github.com/talkincode/toughportal/internal/repository"
)

// Field names usable in a required-field list. FieldIdentity is satisfied by
// either email or whatsapp.
const (
	FieldIdentity  = "identity"
	FieldEmail     = "email"
	FieldWhatsapp  = "whatsapp"
	FieldMac       = "mac"
	FieldIP        = "ip"
	FieldLinkLogin = "link_login"
)

// Required-field presets observed across portal deployments.
var requiredPresets = map[string][]string{
	"minimal": {FieldIdentity},
	"strict":  {FieldIdentity, FieldMac, FieldIP, FieldLinkLogin},
	"device":  {FieldMac, FieldIP},
}

type PasswordRule string

const (
	PasswordMAC      PasswordRule = "mac"
	PasswordIdentity PasswordRule = "identity"
	PasswordFixed    PasswordRule = "fixed"
	PasswordRandom   PasswordRule = "random"
)

type ProvisionStrategy string

const (
	StrategyOptimistic ProvisionStrategy = "optimistic"
	StrategyCheckFirst ProvisionStrategy = "check-first"
)

type ResponseMode string

const (
	ResponseRedirect ResponseMode = "redirect"
	ResponseForm     ResponseMode = "form"
)

// Policy holds every deployment-specific switch of the registration workflow.
type Policy struct {
	RequiredFields   []string
	IdentityOrder    []string
	PasswordRule     PasswordRule
	FallbackPassword string
	LowercaseEmail   bool
	AllowedNetworks  []iplib.Net
	WriteMode        string
	Strategy         ProvisionStrategy
	ActivateSession  bool
	ResponseMode     ResponseMode
	Popup            bool
	Profile          string
	CommentPrefix    string
	StoreTimeout     time.Duration
}

// NewPolicy builds a Policy from the portal configuration section.
func NewPolicy(cfg config.PortalConfig) (*Policy, error) {
	p := &Policy{
		IdentityOrder:    cfg.IdentityOrder,
		PasswordRule:     PasswordRule(strings.ToLower(cfg.PasswordRule)),
		FallbackPassword: cfg.FallbackPassword,
		LowercaseEmail:   cfg.LowercaseEmail,
		WriteMode:        strings.ToLower(strings.TrimSpace(cfg.ContactWriteMode)),
		Strategy:         ProvisionStrategy(strings.ToLower(cfg.ProvisionStrategy)),
		ActivateSession:  cfg.ActivateSession,
		ResponseMode:     ResponseMode(strings.ToLower(cfg.ResponseMode)),
		Popup:            cfg.Popup,
		Profile:          cfg.Profile,
		CommentPrefix:    cfg.CommentPrefix,
		StoreTimeout:     cfg.StoreTimeout,
	}

	required, err := expandRequired(cfg.RequiredFields)
	if err != nil {
		return nil, err
	}
	p.RequiredFields = required

	for _, cidr := range cfg.AllowedNetworks {
		_, network, err := iplib.ParseCIDR(strings.TrimSpace(cidr))
		if err != nil {
			return nil, fmt.Errorf("invalid allowed network %q: %w", cidr, err)
		}
		p.AllowedNetworks = append(p.AllowedNetworks, network)
	}

	return p, p.check()
}

func expandRequired(items []string) ([]string, error) {
	if len(items) == 0 {
		return requiredPresets["minimal"], nil
	}
	if len(items) == 1 {
		if preset, ok := requiredPresets[strings.ToLower(items[0])]; ok {
			return preset, nil
		}
	}
	var fields []string
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		switch item {
		case FieldIdentity, FieldEmail, FieldWhatsapp, FieldMac, FieldIP, FieldLinkLogin:
			fields = append(fields, item)
		default:
			return nil, fmt.Errorf("unknown required field %q", item)
		}
	}
	return fields, nil
}

func (p *Policy) check() error {
	if len(p.IdentityOrder) == 0 {
		p.IdentityOrder = []string{FieldEmail, FieldWhatsapp, FieldMac}
	}
	for _, f := range p.IdentityOrder {
		switch f {
		case FieldEmail, FieldWhatsapp, FieldMac:
		default:
			return fmt.Errorf("unknown identity field %q", f)
		}
	}
	if p.PasswordRule == "" {
		p.PasswordRule = PasswordMAC
	}
	switch p.PasswordRule {
	case PasswordMAC, PasswordIdentity, PasswordFixed, PasswordRandom:
	default:
		return fmt.Errorf("unknown password rule %q", p.PasswordRule)
	}
	if p.FallbackPassword == "" && p.PasswordRule != PasswordRandom {
		return fmt.Errorf("fallback password is required for password rule %q", p.PasswordRule)
	}
	if p.WriteMode == "" {
		p.WriteMode = repository.WriteModeInsert
	}
	if p.WriteMode != repository.WriteModeInsert && p.WriteMode != repository.WriteModeUpsert {
		return fmt.Errorf("unknown contact write mode %q", p.WriteMode)
	}
	if p.Strategy == "" {
		p.Strategy = StrategyOptimistic
	}
	if p.Strategy != StrategyOptimistic && p.Strategy != StrategyCheckFirst {
		return fmt.Errorf("unknown provision strategy %q", p.Strategy)
	}
	if p.ResponseMode == "" {
		p.ResponseMode = ResponseForm
	}
	if p.ResponseMode != ResponseForm && p.ResponseMode != ResponseRedirect {
		return fmt.Errorf("unknown response mode %q", p.ResponseMode)
	}
	if p.Profile == "" {
		p.Profile = "default"
	}
	if p.StoreTimeout <= 0 {
		p.StoreTimeout = 5 * time.Second
	}
	return nil
}

// Normalize canonicalises req in place and enforces the required-field policy
// and field formats.
func (p *Policy) Normalize(req *RegistrationRequest) error {
	req.trim()
	if p.LowercaseEmail {
		req.Email = strings.ToLower(req.Email)
	}

	var missing []string
	for _, field := range p.RequiredFields {
		if !p.present(req, field) {
			if field == FieldIdentity {
				missing = append(missing, "email or whatsapp")
				continue
			}
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}

	if req.Mac != "" {
		hw, err := net.ParseMAC(req.Mac)
		if err != nil {
			return &ValidationError{Reason: fmt.Sprintf("Invalid mac address %q", req.Mac)}
		}
		req.Mac = strings.ToUpper(hw.String())
	}

	if req.IP != "" {
		ip := net.ParseIP(req.IP)
		if ip == nil {
			return &ValidationError{Reason: fmt.Sprintf("Invalid ip address %q", req.IP)}
		}
		if !p.allowedIP(ip) {
			return &ValidationError{Reason: fmt.Sprintf("ip address %s is outside the hotspot network", req.IP)}
		}
		req.IP = ip.String()
	}

	if req.LinkLogin != "" {
		u, err := url.Parse(req.LinkLogin)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return &ValidationError{Reason: "link_login must be an absolute http(s) url"}
		}
	}

	if p.Identity(req) == "" {
		return &ValidationError{Reason: "No identity field present to name the hotspot user"}
	}
	return nil
}

func (p *Policy) present(req *RegistrationRequest, field string) bool {
	switch field {
	case FieldIdentity:
		return req.Email != "" || req.Whatsapp != ""
	case FieldEmail:
		return req.Email != ""
	case FieldWhatsapp:
		return req.Whatsapp != ""
	case FieldMac:
		return req.Mac != ""
	case FieldIP:
		return req.IP != ""
	case FieldLinkLogin:
		return req.LinkLogin != ""
	}
	return false
}

func (p *Policy) allowedIP(ip net.IP) bool {
	if len(p.AllowedNetworks) == 0 {
		return true
	}
	for _, network := range p.AllowedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// Identity returns the account name: the first non-empty field of IdentityOrder.
func (p *Policy) Identity(req *RegistrationRequest) string {
	for _, field := range p.IdentityOrder {
		switch field {
		case FieldEmail:
			if req.Email != "" {
				return req.Email
			}
		case FieldWhatsapp:
			if req.Whatsapp != "" {
				return req.Whatsapp
			}
		case FieldMac:
			if req.Mac != "" {
				return req.Mac
			}
		}
	}
	return ""
}
