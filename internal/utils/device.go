package utils

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/labstack/echo/v4"
)

// DeviceInfo identifies the client a request came from.
type DeviceInfo struct {
	IP         string
	UserAgent  string
	DeviceHash string
}

// DeviceHash returns the hex SHA-256 of "ip:userAgent". Sessions are
// keyed by this value and tokens carry it so that a token presented
// from a different fingerprint does not match its session.
func DeviceHash(ip, userAgent string) string {
	sum := sha256.Sum256([]byte(ip + ":" + userAgent))
	return hex.EncodeToString(sum[:])
}

// ClientInfo extracts the client IP and user agent from the request.
// RealIP prefers the first X-Forwarded-For entry, then X-Real-IP, then
// the socket address.
func ClientInfo(c echo.Context) DeviceInfo {
	ip := c.RealIP()
	ua := c.Request().UserAgent()
	if ua == "" {
		ua = "unknown"
	}
	return DeviceInfo{IP: ip, UserAgent: ua, DeviceHash: DeviceHash(ip, ua)}
}
