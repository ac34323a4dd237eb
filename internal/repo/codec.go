package repo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/BuzzLyutic/task-cli/internal/model"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

// Codec serializes the full collection for one on-disk format.
type Codec interface {
	Format() string
	Encode(tasks []model.Task) ([]byte, error)
	Decode(data []byte) ([]model.Task, error)
}

// CodecFor picks a codec by explicit format name, falling back to the
// extension of path and finally to JSON.
func CodecFor(format, path string) (Codec, error) {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			f = FormatYAML
		case ".toml":
			f = FormatTOML
		default:
			f = FormatJSON
		}
	}

	switch f {
	case FormatJSON:
		return jsonCodec{}, nil
	case FormatYAML, "yml":
		return yamlCodec{}, nil
	case FormatTOML:
		return tomlCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported format %q (supported: json, yaml, toml)", format)
	}
}

type jsonCodec struct{}

func (jsonCodec) Format() string { return FormatJSON }

func (jsonCodec) Encode(tasks []model.Task) ([]byte, error) {
	b, err := json.MarshalIndent(nonNil(tasks), "", "    ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func (jsonCodec) Decode(data []byte) ([]model.Task, error) {
	var tasks []model.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, err
	}
	return nonNil(tasks), nil
}

type yamlCodec struct{}

func (yamlCodec) Format() string { return FormatYAML }

func (yamlCodec) Encode(tasks []model.Task) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(nonNil(tasks)); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (yamlCodec) Decode(data []byte) ([]model.Task, error) {
	var tasks []model.Task
	if err := yaml.Unmarshal(data, &tasks); err != nil {
		return nil, err
	}
	return nonNil(tasks), nil
}

// TOML has no top-level arrays, so the collection lives under "tasks".
type tomlDocument struct {
	Tasks []model.Task `toml:"tasks"`
}

type tomlCodec struct{}

func (tomlCodec) Format() string { return FormatTOML }

func (tomlCodec) Encode(tasks []model.Task) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(tomlDocument{Tasks: nonNil(tasks)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (tomlCodec) Decode(data []byte) ([]model.Task, error) {
	var doc tomlDocument
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, err
	}
	return nonNil(doc.Tasks), nil
}

func nonNil(tasks []model.Task) []model.Task {
	if tasks == nil {
		return []model.Task{}
	}
	return tasks
}
