package config

import (
	"net"
	"strings"
	"time"
)

// RateLimitPolicy is one fixed-window budget: at most Limit requests per
// Window for a given client IP.
type RateLimitPolicy struct {
	Name    string        // key segment, e.g. "login"
	Limit   int           // requests allowed per window
	Window  time.Duration // window length
	Message string        // body message returned with 429
}

// RateLimitConfig groups the limiter switches and the per-route policies.
type RateLimitConfig struct {
	Enabled bool
	Prefix  string
	Debug   bool

	// TrustedProxies are the peers whose X-Forwarded-For header is
	// believed. With none, limits are counted per socket address.
	TrustedProxies []*net.IPNet

	Register RateLimitPolicy
	Resend   RateLimitPolicy
	Login    RateLimitPolicy
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables. Budgets default to
// register 15/hour, resend 15/hour and login 5/15 minutes.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled: envBool("RATE_LIMIT_ENABLED", true),
		Prefix:  envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:   envBool("RATE_LIMIT_DEBUG", false),

		TrustedProxies: parseCIDRs(envStr("TRUSTED_PROXIES", "")),
		Register: RateLimitPolicy{
			Name:    "register",
			Limit:   envInt("RATE_LIMIT_REGISTER_MAX", 15),
			Window:  envDur("RATE_LIMIT_REGISTER_WINDOW", time.Hour),
			Message: "Too many registration attempts, please try again after an hour.",
		},
		Resend: RateLimitPolicy{
			Name:    "resend",
			Limit:   envInt("RATE_LIMIT_RESEND_MAX", 15),
			Window:  envDur("RATE_LIMIT_RESEND_WINDOW", time.Hour),
			Message: "Too many resend email verification attempts, please try again after an hour.",
		},
		Login: RateLimitPolicy{
			Name:    "login",
			Limit:   envInt("RATE_LIMIT_LOGIN_MAX", 5),
			Window:  envDur("RATE_LIMIT_LOGIN_WINDOW", 15*time.Minute),
			Message: "Too many login attempts, please try again after 15 minutes.",
		},
	}
	for _, p := range []*RateLimitPolicy{&cfg.Register, &cfg.Resend, &cfg.Login} {
		if p.Limit < 1 {
			p.Limit = 1
		}
		if p.Window <= 0 {
			p.Window = time.Minute
		}
	}
	return cfg
}

// parseCIDRs reads a comma separated list of CIDRs or bare IPs. Entries
// that parse as neither are skipped.
func parseCIDRs(s string) []*net.IPNet {
	var out []*net.IPNet
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.Contains(p, "/") {
			ip := net.ParseIP(p)
			if ip == nil {
				continue
			}
			if ip.To4() != nil {
				p += "/32"
			} else {
				p += "/128"
			}
		}
		if _, n, err := net.ParseCIDR(p); err == nil {
			out = append(out, n)
		}
	}
	return out
}
