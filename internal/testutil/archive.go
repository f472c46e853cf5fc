package testutil

import (
	"archive/zip"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// BuildPropEntry is where OTA archives keep their build properties.
const BuildPropEntry = "system/build.prop"

// BuildProp renders props as a build.prop resource: a comment header
// followed by key=value lines in sorted key order.
func BuildProp(props map[string]string) string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("\n# begin build properties\n# autogenerated by buildinfo.sh\n")
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(props[k])
		b.WriteByte('\n')
	}
	b.WriteString("# end build properties\n")
	return b.String()
}

// WriteZip creates a zip archive at path holding entries (name -> content).
// Parent directories are created as needed.
func WriteZip(t testing.TB, path string, entries map[string]string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	zw := zip.NewWriter(f)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(entries[name])); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close %s: %v", path, err)
	}
}

// WriteOTA creates an OTA archive at path whose build.prop holds props.
func WriteOTA(t testing.TB, path string, props map[string]string) {
	t.Helper()
	WriteZip(t, path, map[string]string{
		BuildPropEntry:             BuildProp(props),
		"META-INF/MANIFEST.MF":     "Manifest-Version: 1.0\n",
		"system/app/placeholder.x": "payload",
	})
}

// OTAProps returns a complete property set for a nightly build of device.
func OTAProps(device, incremental string) map[string]string {
	return map[string]string{
		"ro.cm.device":                 device,
		"ro.build.version.incremental": incremental,
		"ro.build.date.utc":            "1420070400",
		"ro.build.version.sdk":         "22",
		"ro.odp.releasetype":           "NIGHTLY",
		"ro.build.display.id":          "cm_" + device + "-userdebug 5.1.1",
	}
}
