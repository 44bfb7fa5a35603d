// signwebhook computes the X-Signature value for a webhook payload.
// It reads raw JSON from stdin or a file argument, signs it with
// HMAC-SHA256 using WEBHOOK_SECRET, and prints the digest in hex and
// base64. Intended for test and integration harnesses; it shares no
// state with the running service.
package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

func main() {
	secret := os.Getenv("WEBHOOK_SECRET")
	if secret == "" {
		secret = "webhook_secret"
	}

	raw, err := readInput()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if !json.Valid(raw) {
		fmt.Fprintln(os.Stderr, "input is not valid JSON")
		os.Exit(1)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(raw)
	digest := mac.Sum(nil)

	fmt.Println("Secret:", secret)
	fmt.Println("X-Signature (hex):", hex.EncodeToString(digest))
	fmt.Println("X-Signature (base64):", base64.StdEncoding.EncodeToString(digest))
}

func readInput() ([]byte, error) {
	if len(os.Args) > 1 {
		raw, err := os.ReadFile(os.Args[1])
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", os.Args[1], err)
		}
		return raw, nil
	}

	stat, err := os.Stdin.Stat()
	if err == nil && stat.Mode()&os.ModeCharDevice == 0 {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return raw, nil
	}

	return nil, fmt.Errorf("provide JSON via stdin or a file path")
}
