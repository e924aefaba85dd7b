// Package config locates host-wide blockfs configuration, such as the disk
// image used when none is specified on the command line.
package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"
)

func userConfigDir() string {
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		log.Fatalf("https://golang.org/pkg/os/#UserConfigDir failed: %v", err)
	}
	return userConfigDir
}

// Typically ~/.config/blockfs on Linux
// Typically ~/Library/Application\ Support/blockfs on macOS/Darwin
func blockfsConfigDir() string {
	return filepath.Join(userConfigDir(), "blockfs")
}

func Dir() string { return blockfsConfigDir() }

// ReadFile returns the contents of configBaseName within the config
// directory, with surrounding whitespace removed.
func ReadFile(configBaseName string) (string, error) {
	b, err := os.ReadFile(filepath.Join(blockfsConfigDir(), configBaseName))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// DiskImage returns the path of the default disk image: the path stored in
// disk.txt if that file exists, disk.img in the config directory otherwise.
func DiskImage() string {
	if p, err := ReadFile("disk.txt"); err == nil && p != "" {
		return p
	}
	return filepath.Join(blockfsConfigDir(), "disk.img")
}
