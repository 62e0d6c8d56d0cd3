package weth

import "github.com/lmittmann/w3"

const DepositGasLimit = 100_000

var funcDeposit = w3.MustNewFunc("deposit()", "")

// EncodeDeposit builds the calldata wrapping msg.value into the token.
func EncodeDeposit() ([]byte, error) {
	return funcDeposit.EncodeArgs()
}
