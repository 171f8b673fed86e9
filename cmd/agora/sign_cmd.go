package main

import (
	"crypto/ed25519"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"agora/pkg/agentsign"
)

type signOutput struct {
	ParticipantID string `json:"participant_id"`
	Timestamp     string `json:"timestamp"`
	Signature     string `json:"signature"`
}

func runSign(args []string) int {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var keyHex, bodyPath, timestamp, outPath string
	fs.StringVar(&keyHex, "key-hex", "", "device private key (seed or expanded, hex)")
	fs.StringVar(&bodyPath, "body", "", "request body file (omit for GET-style requests)")
	fs.StringVar(&timestamp, "timestamp", "", "RFC 3339 timestamp (defaults to now)")
	fs.StringVar(&outPath, "out", "", "write headers to file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	priv, err := loadPrivateKey(keyHex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign: %v\n", err)
		return 1
	}

	var body []byte
	if bodyPath != "" {
		body, err = os.ReadFile(bodyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sign: %v\n", err)
			return 1
		}
	}

	at := time.Now()
	if timestamp != "" {
		at, err = time.Parse(time.RFC3339, timestamp)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sign: invalid timestamp: %v\n", err)
			return 1
		}
	}

	participantID := agentsign.ParticipantID(priv.Public().(ed25519.PublicKey))
	headers := agentsign.SignRequest(priv, participantID, at, body)

	payload, err := json.MarshalIndent(signOutput{
		ParticipantID: headers.ParticipantID,
		Timestamp:     headers.Timestamp,
		Signature:     headers.Signature,
	}, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign: %v\n", err)
		return 1
	}
	if err := writeOutput(outPath, payload); err != nil {
		fmt.Fprintf(os.Stderr, "sign: %v\n", err)
		return 1
	}
	return 0
}
