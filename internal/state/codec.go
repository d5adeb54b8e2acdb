package state

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for state paths whose extension has no codec.
var ErrUnsupportedFormat = errors.New("unsupported state file format")

// SaveData is the on-disk document. Only identity and user input are stored;
// everything derived from the filesystem is recomputed on load.
type SaveData struct {
	CurrentDirectory string           `yaml:"current_directory" toml:"current_directory"`
	Directories      []SavedDirectory `yaml:"directories" toml:"directories"`
}

// SavedDirectory is one tracked directory in the document.
type SavedDirectory struct {
	Path            string      `yaml:"path" toml:"path"`
	BackupDirectory string      `yaml:"backup_directory" toml:"backup_directory"`
	Files           []SavedFile `yaml:"files" toml:"files"`
}

// SavedFile is one tracked file in the document.
type SavedFile struct {
	Name       string `yaml:"name" toml:"name"`
	ExportPath string `yaml:"export_path" toml:"export_path"`
}

// Codec encodes and decodes SaveData in one text format.
type Codec interface {
	Encode(w io.Writer, data *SaveData) error
	Decode(r io.Reader, data *SaveData) error
	Name() string
}

// CodecForPath picks a codec from the file extension of path.
func CodecForPath(path string) (Codec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAMLCodec{}, nil
	case ".toml":
		return TOMLCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// YAMLCodec reads and writes the state as YAML.
type YAMLCodec struct{}

func (YAMLCodec) Name() string { return "yaml" }

func (YAMLCodec) Encode(w io.Writer, data *SaveData) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("flushing yaml: %w", err)
	}
	return nil
}

func (YAMLCodec) Decode(r io.Reader, data *SaveData) error {
	if err := yaml.NewDecoder(r).Decode(data); err != nil {
		return fmt.Errorf("decoding yaml: %w", err)
	}
	return nil
}

// TOMLCodec reads and writes the state as TOML.
type TOMLCodec struct{}

func (TOMLCodec) Name() string { return "toml" }

func (TOMLCodec) Encode(w io.Writer, data *SaveData) error {
	if err := toml.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("encoding toml: %w", err)
	}
	return nil
}

func (TOMLCodec) Decode(r io.Reader, data *SaveData) error {
	if _, err := toml.NewDecoder(r).Decode(data); err != nil {
		return fmt.Errorf("decoding toml: %w", err)
	}
	return nil
}
