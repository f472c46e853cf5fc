package collector

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// Build properties read from system/build.prop.
const (
	PropDevice      = "ro.cm.device"
	PropIncremental = "ro.build.version.incremental"
	PropTimestamp   = "ro.build.date.utc"
	PropAPILevel    = "ro.build.version.sdk"
	PropReleaseType = "ro.odp.releasetype"
)

// requiredProps must be present in every publishable archive.
var requiredProps = []string{PropDevice, PropIncremental, PropTimestamp, PropAPILevel}

// parseProperties parses a flat key=value resource. Lines without a section
// header land in the default section, comments start with '#', and values
// are kept verbatim (no inline comments, no unquoting).
func parseProperties(data []byte) (map[string]string, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:     true,
		IgnoreContinuation:      true,
		PreserveSurroundedQuote: true,
		SkipUnrecognizableLines: true,
		AllowBooleanKeys:        true,
		KeyValueDelimiters:      "=",
	}, data)
	if err != nil {
		return nil, fmt.Errorf("parse properties: %w", err)
	}
	return f.Section(ini.DefaultSection).KeysHash(), nil
}
