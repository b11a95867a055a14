// Prints the keccak topic hashes the chain poller filters on, for
// checking a deployed purchase contract against what the backend
// expects.
package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

func main() {
	sigs := []string{
		"PurchaseConfirmed(address,string,uint64,uint256)",
		"Transfer(address,address,uint256)",
	}

	for _, sig := range sigs {
		hash := crypto.Keccak256Hash([]byte(sig))
		fmt.Printf("%s: %s\n", sig, hash.Hex())
	}
}
