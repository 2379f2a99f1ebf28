package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/nazm-contest-api/internal/auth"
	"github.com/nazm-contest-api/internal/identity"
	"github.com/nazm-contest-api/pkg/logger"
)

func main() {
	sub := flag.String("sub", "", "user id placed in the sub claim")
	name := flag.String("name", "", "display name")
	role := flag.String("role", string(auth.RoleUser), "role: user|admin")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	issuer := flag.String("issuer", "nazm-contest-api", "iss claim; must match JWT_ISSUER on the server")
	flag.Parse()

	log := logger.New("info", "pretty")

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal().Msg("JWT_SECRET must be set")
	}

	p := auth.Principal{UserID: *sub, Name: *name, Role: auth.Role(*role)}
	token, err := identity.NewJWTResolver(secret, *issuer, *ttl).Issue(p)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to issue token")
	}
	fmt.Println(token)
}
