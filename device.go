package go_atoapay

import "strings"

const (
	PlatformAndroid = "android"
	PlatformIOS     = "ios"
	PlatformWindows = "windows"
	PlatformMacOS   = "mac os"
	PlatformLinux   = "linux"
	PlatformUnknown = "unknown"

	DeviceOriginMobile  = "MOBILE"
	DeviceOriginDesktop = "DESKTOP"
)

// DeviceInfo answers capability queries about the end user's device.
// Hosts inject it so that the authorisation payload can be built without a real browser.
type DeviceInfo interface {
	// Platform is the operating system, one of the Platform* constants.
	Platform() string
	// Browser is a coarse browser classification ("Chrome", "Safari", ...).
	Browser() string
	IsMobile() bool
}

// StaticDevice is a DeviceInfo with fixed answers.
type StaticDevice struct {
	OS          string
	BrowserName string
	Mobile      bool
}

var _ DeviceInfo = StaticDevice{}

func (d StaticDevice) Platform() string {
	p := strings.ToLower(strings.TrimSpace(d.OS))
	if p == "" {
		return PlatformUnknown
	}
	return p
}

func (d StaticDevice) Browser() string {
	b := strings.TrimSpace(d.BrowserName)
	if b == "" {
		return "Unknown"
	}
	return b
}

// IsMobile is true when Mobile is set or the platform is Android/iOS.
func (d StaticDevice) IsMobile() bool {
	if d.Mobile {
		return true
	}
	switch d.Platform() {
	case PlatformAndroid, PlatformIOS:
		return true
	}
	return false
}

// DefaultDevice is used when no DeviceInfo is configured: a desktop of unknown make.
var DefaultDevice DeviceInfo = StaticDevice{}

func deviceOrigin(d DeviceInfo) string {
	if d != nil && d.IsMobile() {
		return DeviceOriginMobile
	}
	return DeviceOriginDesktop
}
