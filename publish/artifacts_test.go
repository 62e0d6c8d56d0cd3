package publish

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestArtifactsBytecode(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Controller.json"), `{"contractName":"Controller","bytecode":"0x6080"}`)
	writeFile(t, filepath.Join(dir, "SettV4.sol", "SettV4.json"), `{"bytecode":{"object":"0x60806040"}}`)
	writeFile(t, filepath.Join(dir, "Linked.json"), `{"bytecode":"0x6080__$abc$__"}`)
	writeFile(t, filepath.Join(dir, "Empty.json"), `{"bytecode":"0x"}`)
	writeFile(t, filepath.Join(dir, "NoCode.json"), `{"abi":[]}`)

	a := OpenArtifacts(dir)
	require.Equal(t, dir, a.Dir())

	code, err := a.Bytecode("Controller")
	require.NoError(t, err)
	require.Equal(t, []byte{0x60, 0x80}, code)

	code, err = a.Bytecode("SettV4")
	require.NoError(t, err)
	require.Equal(t, []byte{0x60, 0x80, 0x60, 0x40}, code)

	_, err = a.Bytecode("Missing")
	require.ErrorIs(t, err, ErrArtifactNotFound)

	for _, name := range []string{"Linked", "Empty", "NoCode"} {
		_, err := a.Bytecode(name)
		require.Error(t, err, name)
		require.NotErrorIs(t, err, ErrArtifactNotFound, name)
	}
}
