package main

import (
	"crypto/ed25519"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"agora/pkg/agentsign"
)

type stringList []string

func (l *stringList) String() string { return fmt.Sprint([]string(*l)) }

func (l *stringList) Set(value string) error {
	*l = append(*l, value)
	return nil
}

func runCard(args []string) int {
	fs := flag.NewFlagSet("card", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var keyHex, name, attribution, outPath string
	var maxQueries int
	var groups stringList
	fs.StringVar(&keyHex, "key-hex", "", "device private key (seed or expanded, hex)")
	fs.StringVar(&name, "name", "", "display name")
	fs.StringVar(&attribution, "attribution", "pseudonymous", "attribution level")
	fs.IntVar(&maxQueries, "max-queries", 0, "per-session query quota (0 = server default)")
	fs.Var(&groups, "group", "working group id (repeatable)")
	fs.StringVar(&outPath, "out", "", "write signed card to file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	priv, err := loadPrivateKey(keyHex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "card: %v\n", err)
		return 1
	}

	card := agentsign.BuildCard(priv.Public().(ed25519.PublicKey), agentsign.CardOptions{
		DisplayName:          name,
		WorkingGroups:        groups,
		AttributionLevel:     attribution,
		MaxQueriesPerSession: maxQueries,
	})
	signed, err := agentsign.SignCard(priv, card)
	if err != nil {
		fmt.Fprintf(os.Stderr, "card: %v\n", err)
		return 1
	}

	payload, err := json.MarshalIndent(signed, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "card: %v\n", err)
		return 1
	}
	if err := writeOutput(outPath, payload); err != nil {
		fmt.Fprintf(os.Stderr, "card: %v\n", err)
		return 1
	}
	return 0
}
