package router

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"
)

func TestEncodeSelectors(t *testing.T) {
	swap, err := EncodeSwapExactETHForTokens(SwapArgs{
		AmountOutMin: new(big.Int),
		Path:         []common.Address{{1}, {2}},
		To:           common.Address{3},
		Deadline:     big.NewInt(1_700_001_200),
	})
	require.NoError(t, err)
	require.Equal(t, "0x7ff36ab5", hexutil.Encode(swap[:4]))

	liquidity, err := EncodeAddLiquidity(LiquidityArgs{
		TokenA:         common.Address{1},
		TokenB:         common.Address{2},
		AmountADesired: big.NewInt(100),
		AmountBDesired: big.NewInt(200),
		AmountAMin:     big.NewInt(0),
		AmountBMin:     big.NewInt(1),
		To:             common.Address{3},
		Deadline:       big.NewInt(1_700_001_200),
	})
	require.NoError(t, err)
	require.Equal(t, "0xe8e33700", hexutil.Encode(liquidity[:4]))
	require.Len(t, liquidity, 4+8*32)
}
