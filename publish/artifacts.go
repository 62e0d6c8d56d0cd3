package publish

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrArtifactNotFound = errors.New("artifact not found")

// Artifacts reads compiled contract bytecode from a build directory. Both the
// brownie layout (<dir>/<Name>.json) and the foundry layout
// (<dir>/<Name>.sol/<Name>.json) are understood.
type Artifacts struct {
	dir string
}

type artifactFile struct {
	Bytecode json.RawMessage `json:"bytecode"`
}

type foundryBytecode struct {
	Object string `json:"object"`
}

func OpenArtifacts(dir string) *Artifacts {
	return &Artifacts{dir: dir}
}

func (a *Artifacts) Dir() string {
	return a.dir
}

func (a *Artifacts) Bytecode(name string) ([]byte, error) {
	candidates := []string{
		filepath.Join(a.dir, name+".json"),
		filepath.Join(a.dir, name+".sol", name+".json"),
	}
	for _, path := range candidates {
		blob, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read artifact %s: %w", path, err)
		}
		code, err := parseArtifact(blob)
		if err != nil {
			return nil, fmt.Errorf("artifact %s: %w", path, err)
		}
		return code, nil
	}
	return nil, fmt.Errorf("%s in %s: %w", name, a.dir, ErrArtifactNotFound)
}

func parseArtifact(blob []byte) ([]byte, error) {
	var file artifactFile
	if err := json.Unmarshal(blob, &file); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if len(file.Bytecode) == 0 {
		return nil, errors.New("missing bytecode")
	}

	var hexStr string
	if err := json.Unmarshal(file.Bytecode, &hexStr); err != nil {
		var fb foundryBytecode
		if err := json.Unmarshal(file.Bytecode, &fb); err != nil {
			return nil, fmt.Errorf("decode bytecode: %w", err)
		}
		hexStr = fb.Object
	}
	return decodeBytecode(hexStr)
}

func decodeBytecode(hexStr string) ([]byte, error) {
	hexStr = strings.TrimPrefix(strings.TrimSpace(hexStr), "0x")
	if hexStr == "" {
		return nil, errors.New("empty bytecode")
	}
	if i := strings.Index(hexStr, "__"); i >= 0 {
		return nil, fmt.Errorf("unlinked library placeholder at offset %d", i/2)
	}
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	return b, nil
}
