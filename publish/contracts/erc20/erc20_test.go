package erc20

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"
)

func TestEncodeApprove(t *testing.T) {
	data, err := EncodeApprove(common.Address{0xaa}, big.NewInt(42))
	require.NoError(t, err)
	require.Equal(t, "0x095ea7b3", hexutil.Encode(data[:4]))
	require.Equal(t, common.Address{0xaa}, common.BytesToAddress(data[4:36]))
	require.Equal(t, big.NewInt(42), new(big.Int).SetBytes(data[36:68]))
}
