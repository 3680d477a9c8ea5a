package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Platform はOSごとの既定パス。起動時に一度だけ解決し、各層へ渡す。
type Platform struct {
	OS         string
	ConfigPath string // 既定の設定ファイルパス
	LogPath    string // 既定のログファイルパス
}

// DetectPlatform は実行中のOSの既定パスを返す。
func DetectPlatform() Platform {
	return PlatformFor(runtime.GOOS, os.Getenv)
}

// PlatformFor は指定OSの既定パスを返す。
func PlatformFor(goos string, getenv func(string) string) Platform {
	if goos == "windows" {
		programFiles := getenv("PROGRAMFILES")
		if programFiles == "" {
			programFiles = `C:\Program Files`
		}
		windir := getenv("WINDIR")
		if windir == "" {
			windir = `C:\Windows`
		}
		return Platform{
			OS:         goos,
			ConfigPath: programFiles + `\vmam\vmam.yml`,
			LogPath:    windir + `\Logs\vmam\vmam.log`,
		}
	}
	return Platform{
		OS:         goos,
		ConfigPath: filepath.Join("/etc", "vmam", "vmam.yml"),
		LogPath:    filepath.Join("/var", "log", "vmam", "vmam.log"),
	}
}

// ResolveConfigPath はフラグ・環境変数・既定値の順に設定ファイルパスを決定する。
func (p Platform) ResolveConfigPath(flagValue string, cfg *Config) string {
	if flagValue != "" {
		return flagValue
	}
	if cfg != nil && cfg.ConfigFile != "" {
		return cfg.ConfigFile
	}
	return p.ConfigPath
}
