package sheetshot

import (
	"github.com/bft-labs/sheetshot/pkg/log"
	"github.com/bft-labs/sheetshot/pkg/sender"
)

// Version information for the sheetshot module.
const (
	Version              = "1.0.0"
	MinCompatibleVersion = "1.0.0"
)

type moduleVersion struct {
	version    string
	minVersion string
}

func moduleVersionTable() map[string]moduleVersion {
	return map[string]moduleVersion{
		"sheetshot": {Version, MinCompatibleVersion},
		"sender":    {sender.Version, sender.MinCompatibleVersion},
		"log":       {log.Version, log.MinCompatibleVersion},
	}
}

// ModuleVersions returns the current version of every sub-module.
func ModuleVersions() map[string]string {
	out := map[string]string{}
	for name, m := range moduleVersionTable() {
		out[name] = m.version
	}
	return out
}

// CompatibilityMatrix returns the minimum compatible version of every sub-module.
func CompatibilityMatrix() map[string]string {
	out := map[string]string{}
	for name, m := range moduleVersionTable() {
		out[name] = m.minVersion
	}
	return out
}
