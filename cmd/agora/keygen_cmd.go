package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"agora/pkg/agentsign"
)

type keygenOutput struct {
	ParticipantID  string `json:"participant_id"`
	PublicKeyHex   string `json:"public_key"`
	PrivateSeedHex string `json:"private_key_seed"`
}

func runKeygen(args []string) int {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var outPath string
	fs.StringVar(&outPath, "out", "", "write key material to file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	pub, priv, err := agentsign.GenerateKeypair()
	if err != nil {
		fmt.Fprintf(os.Stderr, "keygen: %v\n", err)
		return 1
	}

	out := keygenOutput{
		ParticipantID:  agentsign.ParticipantID(pub),
		PublicKeyHex:   hex.EncodeToString(pub),
		PrivateSeedHex: hex.EncodeToString(priv.Seed()),
	}
	payload, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "keygen: %v\n", err)
		return 1
	}
	if err := writeOutput(outPath, payload); err != nil {
		fmt.Fprintf(os.Stderr, "keygen: %v\n", err)
		return 1
	}
	return 0
}

func loadPrivateKey(keyHex string) (ed25519.PrivateKey, error) {
	if keyHex == "" {
		return nil, fmt.Errorf("--key-hex is required")
	}
	return agentsign.ParsePrivateKeyHex(keyHex)
}
