package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	appDirName   = "ChromePower"
	cacheDirName = "ChromePowerCache"
	legacyBinRel = `Chrome-bin\chrome.exe`
)

// Platform carries the OS-specific base directories defaults are derived from.
type Platform struct {
	GOOS      string
	Documents string
	AppData   string
	Resources string
}

func DetectPlatform() Platform {
	p := Platform{GOOS: runtime.GOOS}

	home, err := os.UserHomeDir()
	if err == nil {
		p.Documents = filepath.Join(home, "Documents")
	}

	if dir, err := os.UserConfigDir(); err == nil {
		p.AppData = dir
	} else if home != "" {
		p.AppData = filepath.Join(home, ".config")
	}

	if exe, err := os.Executable(); err == nil {
		p.Resources = filepath.Dir(exe)
	}

	return p
}

func (p Platform) DataDir() string {
	return filepath.Join(p.AppData, appDirName)
}

// DefaultCachePath is a Documents subfolder on macOS and an application-data
// subfolder everywhere else.
func (p Platform) DefaultCachePath() string {
	if p.GOOS == "darwin" {
		return filepath.Join(p.Documents, cacheDirName)
	}
	return filepath.Join(p.AppData, cacheDirName)
}

func (p Platform) DefaultChromePath() string {
	switch p.GOOS {
	case "darwin":
		return "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"
	case "windows":
		return `C:\Program Files\Google\Chrome\Application\chrome.exe`
	default:
		return "/usr/bin/google-chrome"
	}
}

func (p Platform) DefaultChromiumBinPath() string {
	return filepath.Join(p.Resources, "Chrome-bin", "chrome.exe")
}
