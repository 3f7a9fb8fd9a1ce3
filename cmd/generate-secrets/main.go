package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/DoSvEinTe/proyecto-flota/internal/utils"
	"github.com/DoSvEinTe/proyecto-flota/pkg/jwt"
)

// generate-secrets prints a fresh JWT signing secret. With -token it also
// mints an access token for an operator, signed with that secret or with
// -secret when given.
func main() {
	var (
		mint    bool
		secret  string
		subject string
		name    string
		roles   string
		issuer  string
		expiry  time.Duration
	)
	flag.BoolVar(&mint, "token", false, "also mint an operator access token")
	flag.StringVar(&secret, "secret", "", "sign the token with this secret instead of a new one")
	flag.StringVar(&subject, "subject", "operator", "token subject")
	flag.StringVar(&name, "name", "", "operator display name")
	flag.StringVar(&roles, "roles", "operator", "comma separated roles (use admin for admin routes)")
	flag.StringVar(&issuer, "issuer", "proyecto-flota", "token issuer, must match JWT_ISSUER")
	flag.DurationVar(&expiry, "expiry", 8*time.Hour, "token lifetime")
	flag.Parse()

	fmt.Println("===========================================")
	fmt.Println("JWT Secret Generator")
	fmt.Println("===========================================")
	fmt.Println()

	if secret == "" {
		generated, err := utils.GenerateJWTSecret()
		if err != nil {
			log.Fatalf("Failed to generate secret: %v", err)
		}
		secret = generated
		fmt.Println("Add this to your .env file:")
		fmt.Println()
		fmt.Printf("JWT_SECRET=%s\n", secret)
		fmt.Println()
	}

	if mint {
		service := jwt.NewService(secret, issuer, expiry)
		token, err := service.GenerateAccessToken(subject, name, strings.Split(roles, ","))
		if err != nil {
			log.Fatalf("Failed to mint token: %v", err)
		}
		fmt.Printf("Access token (%s, roles %s, valid %s):\n\n%s\n\n", subject, roles, expiry, token)
	}

	fmt.Println("IMPORTANT: Keep these secrets safe and never commit them to version control!")
	fmt.Println("===========================================")
}
