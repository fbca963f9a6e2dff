// Package minifier runs an external shader minifier and the glslang validator.
package minifier

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/abiosoft/lineprefix"
	"github.com/pkg/errors"

	"github.com/pescuma/minwatch/lib/consoles"
)

const (
	BinaryName    = "shader_minifier"
	ValidatorName = "glslangValidator"
)

// TransformError means the minifier itself rejected the source.
type TransformError struct {
	Message string
}

func (e *TransformError) Error() string {
	return e.Message
}

// ValidationError means the validator rejected the source or the minified result.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type Config struct {
	// Binaries maps a version to an explicit binary. Versions not listed are searched in PATH.
	Binaries map[Version]string
	// Validator is a path or a name to search in PATH.
	Validator string
	// Verify checks the binary digest against Digests.
	Verify  bool
	Options Options
}

type Minifier struct {
	console   consoles.Console
	version   Version
	path      string
	validator string
	opts      Options
}

// Prepare finds and checks the binaries for one version.
func Prepare(console consoles.Console, version Version, cfg *Config) (*Minifier, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	path, err := findBinary(version, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Verify {
		err = verifyDigest(path, Digests[version])
		if err != nil {
			return nil, err
		}
	}

	validatorName := cfg.Validator
	if validatorName == "" {
		validatorName = ValidatorName
	}
	validator, err := exec.LookPath(validatorName)
	if err != nil {
		return nil, errors.Wrapf(err, "could not find %v", validatorName)
	}

	return &Minifier{
		console:   console,
		version:   version,
		path:      path,
		validator: validator,
		opts:      cfg.Options,
	}, nil
}

func findBinary(version Version, cfg *Config) (string, error) {
	if path, ok := cfg.Binaries[version]; ok && path != "" {
		_, err := os.Stat(path)
		if err != nil {
			return "", errors.Wrapf(err, "minifier %v", version)
		}
		return path, nil
	}

	for _, name := range []string{BinaryName + "-" + string(version), BinaryName} {
		path, err := exec.LookPath(name)
		if err != nil {
			continue
		}

		found, err := DetectVersion(path)
		if err == nil && found == version {
			return path, nil
		}
	}

	return "", errors.Errorf("no %v binary found for version %v", BinaryName, version)
}

func verifyDigest(path string, expected string) error {
	if expected == "" {
		return errors.Errorf("no known digest for %v", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "could not read %v", path)
	}

	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != expected {
		return errors.Errorf("digest mismatch for %v", path)
	}

	return nil
}

func (m *Minifier) Version() Version {
	return m.version
}

func (m *Minifier) Path() string {
	return m.path
}

func (m *Minifier) Validate(source string) error {
	dir, err := os.MkdirTemp("", "minwatch-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	file := filepath.Join(dir, "shader.frag")
	err = os.WriteFile(file, []byte(source), 0o600)
	if err != nil {
		return err
	}

	return m.validate(file)
}

func (m *Minifier) validate(file string) error {
	out, err := m.run(m.validator, file)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ValidationError{Message: out}
		}
		return errors.Wrapf(err, "could not run %v", m.validator)
	}

	return nil
}

// Minify minifies the source and validates the result. Use Validate to check the source first.
func (m *Minifier) Minify(source string) (string, error) {
	dir, err := os.MkdirTemp("", "minwatch-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "unminified.frag")
	output := filepath.Join(dir, "minified.frag")

	err = os.WriteFile(input, []byte(source), 0o600)
	if err != nil {
		return "", err
	}

	out, err := m.run(m.path, m.opts.Args(output, input)...)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &TransformError{Message: out}
		}
		return "", errors.Wrapf(err, "could not run %v", m.path)
	}

	err = m.validate(output)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return "", &ValidationError{Message: "Invalid minified shader:\n" + verr.Message +
				"\nThis is a shader minifier bug, please report it to https://github.com/laurentlb/Shader_Minifier/issues"}
		}
		return "", err
	}

	result, err := os.ReadFile(output)
	if err != nil {
		return "", errors.Wrap(err, "could not read minified shader")
	}

	return string(result), nil
}

// run executes the command and returns its stdout. In verbose mode stderr is echoed to the console.
func (m *Minifier) run(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if m.opts.Verbose && m.console != nil {
		prefix := lineprefix.PrefixFunc(func() string {
			return m.console.Prepare("%v: ", filepath.Base(name))
		})
		cmd.Stderr = io.MultiWriter(&stderr, lineprefix.New(lineprefix.Writer(os.Stdout), prefix))
	}

	err := cmd.Run()

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		out = strings.TrimSpace(stderr.String())
	}

	return out, err
}
