package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
)

// Base and api keys are derived from this secret, 32 bytes keeps the
// whole chain at sha256 strength
const secretLen = 32

func main() {
	secret := make([]byte, secretLen)

	if _, err := rand.Read(secret); err != nil {
		fmt.Fprintf(os.Stderr, "error while generating secret key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hex.EncodeToString(secret))
}
