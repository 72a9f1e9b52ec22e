// Package source implements the module-loading boundary of §6: reading
// source text for an `!import`, under a fixed size cap and a closed set
// of allowed schemes. Nothing here ever fetches over the network (§1
// Non-goals): everything is a local file read.
package source

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/PeterShinners/comp-sub000/internal/comperr"
)

// MaxBytes bounds the size of any single source file this package will
// read (§6).
const MaxBytes = 10 * 1024 * 1024

// rejectedSchemes are never resolvable by this package (§6, §1
// Non-goals: no network resource loading).
var rejectedSchemes = []string{"http://", "https://", "git+", "ssh://"}

// Source reads the content of one module's backing text. etag is an
// opaque change marker (`abspath:mtime_ns` for FileSource) a caller can
// compare across two reads to detect staleness without re-reading.
type Source interface {
	Read(ctx context.Context) (content []byte, etag string, err error)
}

// Config bounds where `!import` is allowed to resolve from (§2 ambient
// configuration, §6).
type Config struct {
	// Roots is the ordered list of directories `stdlib`/`comp`-prefixed
	// imports are resolved against. A relative or absolute import path
	// is resolved directly, ignoring Roots.
	Roots []string
	// MaxBytes records a manifest's max_bytes value. FileSource.Read does
	// not consult it: every read is capped at the package MaxBytes.
	MaxBytes int64
}

func (c Config) maxBytes() int64 {
	if c.MaxBytes > 0 {
		return c.MaxBytes
	}
	return MaxBytes
}

// manifest is the on-disk shape of an optional comp.yaml: a project's
// way of recording its import roots without repeating -root on every
// cmd/comp invocation.
type manifest struct {
	Roots    []string `yaml:"roots"`
	MaxBytes int64    `yaml:"max_bytes"`
}

// LoadConfig reads a comp.yaml manifest at path and returns the Config
// it describes. Roots recorded in the manifest as relative paths are
// resolved against the manifest's own directory, so a comp.yaml can be
// checked into a repo and still resolve correctly regardless of the
// caller's working directory.
func LoadConfig(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var man manifest
	if err := yaml.Unmarshal(content, &man); err != nil {
		return Config{}, comperr.Newf(comperr.SRC002NotFound, path, "cannot parse %s: %v", path, err)
	}
	baseDir := filepath.Dir(path)
	cfg := Config{MaxBytes: man.MaxBytes}
	for _, root := range man.Roots {
		if filepath.IsAbs(root) {
			cfg.Roots = append(cfg.Roots, root)
			continue
		}
		cfg.Roots = append(cfg.Roots, filepath.Join(baseDir, root))
	}
	return cfg, nil
}

// FileSource reads one file from local disk.
type FileSource struct {
	Path string
}

// Read implements Source. The file is rejected (SRC003) if it exceeds
// the package MaxBytes cap, checked via Stat before the read, so an
// oversized file is never even partially loaded into memory.
func (s FileSource) Read(ctx context.Context) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	info, err := os.Stat(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", comperr.New(comperr.SRC002NotFound, s.Path, "source file not found: "+s.Path)
		}
		return nil, "", err
	}
	if info.Size() > MaxBytes {
		return nil, "", comperr.New(comperr.SRC003TooLarge, s.Path,
			fmt.Sprintf("source file %s exceeds %d byte cap", s.Path, MaxBytes))
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	content, err := io.ReadAll(io.LimitReader(f, MaxBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(content)) > MaxBytes {
		return nil, "", comperr.New(comperr.SRC003TooLarge, s.Path,
			fmt.Sprintf("source file %s exceeds %d byte cap", s.Path, MaxBytes))
	}
	return content, etagFor(s.Path, info), nil
}

func etagFor(path string, info fs.FileInfo) string {
	return fmt.Sprintf("%s:%d", path, info.ModTime().UnixNano())
}

// Resolve locates a Source for an `!import`'s raw reference string,
// honoring the four reference kinds of §6: a rejected remote scheme, an
// absolute path, a relative path (resolved against baseDir, the
// importing file's own directory), or a bare `stdlib`/`comp`-style
// dotted name resolved against cfg.Roots in order.
func Resolve(cfg Config, ref string, baseDir string) (Source, error) {
	for _, scheme := range rejectedSchemes {
		if strings.HasPrefix(ref, scheme) {
			return nil, comperr.New(comperr.SRC001UnsupportedScheme, ref,
				"unsupported import scheme: "+ref)
		}
	}
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" {
		return nil, comperr.New(comperr.SRC001UnsupportedScheme, ref,
			"unsupported import scheme: "+u.Scheme)
	}

	if filepath.IsAbs(ref) {
		return FileSource{Path: ref}, nil
	}
	if strings.HasPrefix(ref, "./") || strings.HasPrefix(ref, "../") {
		return FileSource{Path: filepath.Join(baseDir, ref)}, nil
	}

	candidate := strings.ReplaceAll(ref, ".", string(filepath.Separator)) + ".comp"
	for _, root := range cfg.Roots {
		path := filepath.Join(root, candidate)
		if _, err := os.Stat(path); err == nil {
			return FileSource{Path: path}, nil
		}
	}
	return nil, comperr.New(comperr.SRC002NotFound, ref, "import not found in any configured root: "+ref)
}
