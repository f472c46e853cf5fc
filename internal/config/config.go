// Package config loads the INI configuration read once per run.
//
// The file has a [general] section describing the mirror and the directories
// to scan, and a [database] section describing where published downloads are
// stored. Load returns an explicit Config value; nothing is kept in package
// state.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/roach88/otasync/internal/checksum"
)

// DefaultPath is the well-known config file looked up in the working directory.
const DefaultPath = "config.ini"

// Supported database drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// driverAliases maps accepted spellings to the canonical driver name.
var driverAliases = map[string]string{
	"sqlite":     DriverSQLite,
	"postgresql": DriverPostgres,
	"pgx":        DriverPostgres,
}

const (
	sectionGeneral  = "general"
	sectionDatabase = "database"

	// scan_dirs entries are separated the same way as PATH.
	scanDirSeparator = ":"
)

// Error reports a missing or malformed configuration key.
type Error struct {
	Section string
	Key     string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var loc string
	switch {
	case e.Section != "" && e.Key != "":
		loc = fmt.Sprintf("[%s] %s: ", e.Section, e.Key)
	case e.Section != "":
		loc = fmt.Sprintf("[%s]: ", e.Section)
	}
	if e.Err != nil {
		return fmt.Sprintf("config: %s%s: %v", loc, e.Message, e.Err)
	}
	return fmt.Sprintf("config: %s%s", loc, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is (or wraps) a configuration error.
func IsConfigError(err error) bool {
	var cfgErr *Error
	return errors.As(err, &cfgErr)
}

// Config is the complete configuration of one sync run.
type Config struct {
	MirrorID int64
	BaseURL  string
	BasePath string
	ScanDirs []string
	Checksum checksum.Algorithm
	Database Database
}

// Database holds storage connection parameters.
type Database struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

// DSN returns the data source name understood by the configured driver.
// For SQLite the database name is the file path.
func (d Database) DSN() string {
	if d.Driver != DriverPostgres {
		return d.Name
	}
	host := d.Host
	if d.Port != 0 {
		host = net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   host,
		Path:   "/" + d.Name,
	}
	if d.Password != "" {
		u.User = url.UserPassword(d.User, d.Password)
	} else if d.User != "" {
		u.User = url.User(d.User)
	}
	return u.String()
}

// Redacted returns the DSN with the password masked, for logging.
func (d Database) Redacted() string {
	if d.Driver != DriverPostgres {
		return d.Name
	}
	u, err := url.Parse(d.DSN())
	if err != nil {
		return d.Driver
	}
	return u.Redacted()
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, &Error{Message: fmt.Sprintf("cannot read %s", path), Err: err}
	}
	return fromFile(f)
}

// Parse validates configuration from raw INI data.
func Parse(data []byte) (*Config, error) {
	f, err := ini.Load(data)
	if err != nil {
		return nil, &Error{Message: "cannot parse configuration", Err: err}
	}
	return fromFile(f)
}

func fromFile(f *ini.File) (*Config, error) {
	general, err := f.GetSection(sectionGeneral)
	if err != nil {
		return nil, &Error{Section: sectionGeneral, Message: "section missing"}
	}
	database, err := f.GetSection(sectionDatabase)
	if err != nil {
		return nil, &Error{Section: sectionDatabase, Message: "section missing"}
	}

	cfg := &Config{}

	mirror, err := requireKey(general, "mirror_id")
	if err != nil {
		return nil, err
	}
	cfg.MirrorID, err = mirror.Int64()
	if err != nil || cfg.MirrorID < 0 {
		return nil, &Error{Section: sectionGeneral, Key: "mirror_id", Message: fmt.Sprintf("must be a non-negative integer, got %q", mirror.String())}
	}

	if cfg.BaseURL, err = requireString(general, "base_url"); err != nil {
		return nil, err
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, &Error{Section: sectionGeneral, Key: "base_url", Message: "malformed URL", Err: err}
	}

	if cfg.BasePath, err = requireString(general, "base_path"); err != nil {
		return nil, err
	}

	dirs, err := requireString(general, "scan_dirs")
	if err != nil {
		return nil, err
	}
	for _, d := range strings.Split(dirs, scanDirSeparator) {
		if d = strings.TrimSpace(d); d != "" {
			cfg.ScanDirs = append(cfg.ScanDirs, d)
		}
	}
	if len(cfg.ScanDirs) == 0 {
		return nil, &Error{Section: sectionGeneral, Key: "scan_dirs", Message: "no directories listed"}
	}

	cfg.Checksum = checksum.MD5
	if k := general.Key("checksum"); k.String() != "" {
		algo, err := checksum.ParseAlgorithm(k.String())
		if err != nil {
			return nil, &Error{Section: sectionGeneral, Key: "checksum", Message: "unsupported algorithm", Err: err}
		}
		cfg.Checksum = algo
	}

	db, err := parseDatabase(database)
	if err != nil {
		return nil, err
	}
	cfg.Database = db

	return cfg, nil
}

func parseDatabase(s *ini.Section) (Database, error) {
	db := Database{
		Driver:   strings.ToLower(s.Key("driver").MustString(DriverSQLite)),
		Host:     strings.TrimSpace(s.Key("host").String()),
		User:     strings.TrimSpace(s.Key("user").String()),
		Password: s.Key("passwd").String(),
	}

	if canonical, ok := driverAliases[db.Driver]; ok {
		db.Driver = canonical
	}

	switch db.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return Database{}, &Error{Section: sectionDatabase, Key: "driver", Message: fmt.Sprintf("unsupported driver %q", db.Driver)}
	}

	name, err := requireString(s, "db")
	if err != nil {
		return Database{}, err
	}
	db.Name = name

	if raw := strings.TrimSpace(s.Key("port").String()); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port < 1 || port > 65535 {
			return Database{}, &Error{Section: sectionDatabase, Key: "port", Message: fmt.Sprintf("must be an integer in 1..65535, got %q", raw)}
		}
		db.Port = port
	}

	if db.Driver == DriverPostgres {
		if db.Host == "" {
			return Database{}, &Error{Section: sectionDatabase, Key: "host", Message: "required for postgres"}
		}
		if db.User == "" {
			return Database{}, &Error{Section: sectionDatabase, Key: "user", Message: "required for postgres"}
		}
	}

	return db, nil
}

func requireKey(s *ini.Section, name string) (*ini.Key, error) {
	if !s.HasKey(name) || strings.TrimSpace(s.Key(name).String()) == "" {
		return nil, &Error{Section: s.Name(), Key: name, Message: "missing"}
	}
	return s.Key(name), nil
}

func requireString(s *ini.Section, name string) (string, error) {
	k, err := requireKey(s, name)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(k.String()), nil
}
