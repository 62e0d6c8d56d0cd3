package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// WriteArtifacts writes a brownie style build file for each kind into dir
// whose bytecode deploys the matching simulated contract.
func WriteArtifacts(dir string, kinds ...string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if len(kinds) == 0 {
		kinds = []string{KindController, KindSett, KindStrategy, KindGuestList}
	}
	for _, kind := range kinds {
		blob, err := json.Marshal(map[string]string{
			"contractName": kind,
			"bytecode":     hexutil.Encode(Bytecode(kind)),
		})
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, kind+".json"), blob, 0o644); err != nil {
			return err
		}
	}
	return nil
}
