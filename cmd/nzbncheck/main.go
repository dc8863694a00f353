// Checksum tool for NZBN and GST registration numbers.
//
// Usage:
//   go run cmd/nzbncheck/main.go -nzbn 9429041535110
//   go run cmd/nzbncheck/main.go -gst 49-091-850
//   go run cmd/nzbncheck/main.go -nzbn 9429041535110 -online -token $NZBN_TOKEN
//
// Offline mode verifies the check digit only. Online mode also queries
// the NZBN Register and lists the GST registrations on record.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/opensource-commerce/kea/internal/checksum"
	"github.com/opensource-commerce/kea/internal/domain"
	"github.com/opensource-commerce/kea/internal/registry"
)

func main() {
	nzbn := flag.String("nzbn", "", "NZBN to validate (13 digits)")
	gst := flag.String("gst", "", "GST registration number to validate")
	online := flag.Bool("online", false, "Also query the NZBN Register (requires -token)")
	token := flag.String("token", "", "NZBN API access token for online checks")
	env := flag.String("env", "sandbox", "NZBN API environment: sandbox or production")
	timeout := flag.Int("timeout", 10, "Online request timeout in seconds")
	flag.Parse()

	if *nzbn == "" && *gst == "" {
		fmt.Println("Usage: nzbncheck -nzbn 9429041535110 [-online -token TOKEN]")
		fmt.Println("       nzbncheck -gst 49-091-850")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	ok := true

	if *gst != "" {
		if checksum.IsValidGST(*gst) {
			fmt.Printf("✓ GST %s has a valid check digit\n", *gst)
		} else {
			fmt.Printf("✗ GST %s failed check digit validation\n", *gst)
			ok = false
		}
	}

	if *nzbn != "" {
		if checksum.IsValidNZBN(*nzbn) {
			fmt.Printf("✓ NZBN %s has a valid check digit\n", *nzbn)
		} else {
			fmt.Printf("✗ NZBN %s failed check digit validation\n", *nzbn)
			ok = false
		}

		if *online && ok {
			if err := checkRegister(*nzbn, *token, *env, *timeout); err != nil {
				ok = false
			}
		}
	}

	if !ok {
		os.Exit(1)
	}
}

func checkRegister(nzbn, token, env string, timeoutSecs int) error {
	if token == "" {
		fmt.Println("✗ Online check requires -token")
		return errors.New("missing access token")
	}

	environment := domain.EnvironmentSandbox
	if env == "production" {
		environment = domain.EnvironmentProduction
	}

	client := registry.NewClient(registry.ClientConfig{
		Timeout: time.Duration(timeoutSecs) * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)
	defer cancel()

	records, err := client.GSTRegistrations(ctx, "nzbncheck", environment, token, nzbn)
	if err != nil {
		if errors.Is(err, domain.ErrNZBNNotFound) {
			fmt.Printf("✗ NZBN %s not found at the NZBN Register\n", nzbn)
		} else {
			fmt.Printf("✗ NZBN Register lookup failed: %v\n", err)
		}
		return err
	}

	if len(records) == 0 {
		fmt.Printf("  NZBN %s has no GST registrations on record\n", nzbn)
		return nil
	}

	fmt.Printf("  NZBN %s registrations:\n", nzbn)
	for _, rec := range records {
		validity := "check digit invalid"
		if checksum.IsValidGST(rec.GSTNumber) {
			validity = "check digit valid"
		}
		fmt.Printf("    GST %-12s start %-19s (%s)\n", rec.GSTNumber, rec.StartDate, validity)
	}
	return nil
}
