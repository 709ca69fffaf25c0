package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"sunnydapp/internal/models"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	"github.com/stellar/go/strkey"
)

const usage = `Usage:
  sunnyctl keygen
  sunnyctl hex <account>
  sunnyctl invoke [-url URL] [-network PASSPHRASE] [-sign SEED,...] [-seq N] [-dry-run] <operation> [arg ...]

Arguments are typed by prefix: s:text  y:symbol  i:int64  u:uint64  a:G...account
Unprefixed arguments are strings.
Each signer signs at its current sequence, read from the API unless -seq is given.`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "keygen":
		err = keygen()
	case "hex":
		err = accountHex(os.Args[2:])
	case "invoke":
		err = invoke(os.Args[2:])
	default:
		fmt.Println(usage)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func keygen() error {
	kp, err := keypair.Random()
	if err != nil {
		return err
	}
	fmt.Printf("address: %s\nseed:    %s\n", kp.Address(), kp.Seed())
	return nil
}

// accountHex prints the raw ed25519 public key behind an account ID
func accountHex(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: sunnyctl hex <account>")
	}
	raw, err := strkey.Decode(strkey.VersionByteAccountID, args[0])
	if err != nil {
		return fmt.Errorf("error decoding strkey: %w", err)
	}
	fmt.Println(hex.EncodeToString(raw))
	return nil
}

func invoke(argv []string) error {
	fs := flag.NewFlagSet("invoke", flag.ExitOnError)
	var (
		url         = fs.String("url", "http://localhost:8080", "SunnyDapp API base URL")
		networkPass = fs.String("network", network.TestNetworkPassphrase, "Network passphrase")
		seeds       = fs.String("sign", "", "Comma separated secret seeds to sign with")
		dryRun      = fs.Bool("dry-run", false, "Print the request instead of sending it")
		sequence    = fs.Int64("seq", -1, "Sign at this sequence instead of reading it from the API")
	)
	if err := fs.Parse(argv); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("operation is required")
	}

	var signers []*keypair.Full
	if *seeds != "" {
		for _, seed := range strings.Split(*seeds, ",") {
			kp, err := keypair.ParseFull(strings.TrimSpace(seed))
			if err != nil {
				return fmt.Errorf("invalid seed: %w", err)
			}
			signers = append(signers, kp)
		}
	}

	client := &http.Client{Timeout: 15 * time.Second}
	base := strings.TrimRight(*url, "/")

	sequences := make(map[string]uint64, len(signers))
	for _, kp := range signers {
		if *sequence >= 0 {
			sequences[kp.Address()] = uint64(*sequence)
			continue
		}
		seq, err := fetchSequence(client, base, kp.Address())
		if err != nil {
			return err
		}
		sequences[kp.Address()] = seq
	}

	req, err := buildRequest(*networkPass, fs.Arg(0), fs.Args()[1:], signers, sequences)
	if err != nil {
		return err
	}

	body, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return err
	}
	if *dryRun {
		fmt.Println(string(body))
		return nil
	}

	resp, err := client.Post(base+"/invoke", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n%s", resp.Status, out)
	return nil
}

// fetchSequence reads the sequence account must sign its next invocation with
func fetchSequence(client *http.Client, base, account string) (uint64, error) {
	resp, err := client.Get(base + "/sequences/" + account)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch sequence: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("failed to fetch sequence for %s: %s", account, resp.Status)
	}
	var seq models.SequenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&seq); err != nil {
		return 0, fmt.Errorf("failed to decode sequence: %w", err)
	}
	return seq.Sequence, nil
}
