// Package checksum resolves the content checksum published for an archive.
//
// A sidecar digest file next to the archive (for example foo.zip.md5sum) is
// trusted verbatim. Without one the archive bytes are hashed.
package checksum

import (
	"crypto/md5"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/opencontainers/go-digest"
)

// Algorithm names a supported checksum algorithm.
type Algorithm string

const (
	MD5    Algorithm = "md5"
	SHA256 Algorithm = "sha256"
	SHA512 Algorithm = "sha512"
)

// ErrEmptySidecar is returned when a sidecar file holds no digest.
var ErrEmptySidecar = errors.New("sidecar digest file is empty")

// ParseAlgorithm validates an algorithm name (case-insensitive).
func ParseAlgorithm(name string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(name))); a {
	case MD5, SHA256, SHA512:
		return a, nil
	default:
		return "", fmt.Errorf("unknown checksum algorithm %q", name)
	}
}

// SidecarSuffix is appended to an archive path to locate its sidecar digest.
func (a Algorithm) SidecarSuffix() string {
	return "." + string(a) + "sum"
}

// newHash returns a hash for a. SHA-2 digests come from go-digest, which
// does not register MD5; go-digest needs the crypto packages linked in.
func (a Algorithm) newHash() (hash.Hash, error) {
	switch a {
	case MD5:
		return md5.New(), nil
	case SHA256:
		return digest.SHA256.Hash(), nil
	case SHA512:
		return digest.SHA512.Hash(), nil
	default:
		return nil, fmt.Errorf("unknown checksum algorithm %q", string(a))
	}
}

// Sum is a resolved checksum.
type Sum struct {
	Value string
	// FromSidecar is true when Value was read from a sidecar file.
	FromSidecar bool
	// Hashed is the number of archive bytes read to compute Value.
	Hashed int64
}

// Resolver resolves checksums with a fixed algorithm.
type Resolver struct {
	Algorithm Algorithm
}

// NewResolver returns a Resolver for algo, defaulting to MD5.
func NewResolver(algo Algorithm) *Resolver {
	if algo == "" {
		algo = MD5
	}
	return &Resolver{Algorithm: algo}
}

// Resolve returns the checksum of the file at path.
func (r *Resolver) Resolve(path string) (Sum, error) {
	sidecar := path + r.Algorithm.SidecarSuffix()
	data, err := os.ReadFile(sidecar)
	switch {
	case err == nil:
		v, err := parseSidecar(data)
		if err != nil {
			return Sum{}, fmt.Errorf("read sidecar %s: %w", sidecar, err)
		}
		return Sum{Value: v, FromSidecar: true}, nil
	case !errors.Is(err, os.ErrNotExist):
		return Sum{}, fmt.Errorf("read sidecar %s: %w", sidecar, err)
	}

	return r.hashFile(path)
}

func (r *Resolver) hashFile(path string) (Sum, error) {
	h, err := r.Algorithm.newHash()
	if err != nil {
		return Sum{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return Sum{}, fmt.Errorf("hash %s: %w", path, err)
	}
	defer f.Close()

	n, err := io.Copy(h, f)
	if err != nil {
		return Sum{}, fmt.Errorf("hash %s: %w", path, err)
	}
	return Sum{Value: hex.EncodeToString(h.Sum(nil)), Hashed: n}, nil
}

// parseSidecar extracts the digest from "<digest>  <filename>" content as
// written by md5sum(1) and friends.
func parseSidecar(data []byte) (string, error) {
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return "", ErrEmptySidecar
	}
	return fields[0], nil
}
