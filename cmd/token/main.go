// token mints a development bearer token for the Huddle server.
//
// Usage:
//
//	token --user alice --name "Alice" [--ttl 24h] [--secret s] [--issuer i]
//
// Secret and issuer default to auth_secret and auth_issuer from the config
// selected by CONFIG_ENV.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/dkeye/Huddle/internal/adapters/auth"
	"github.com/dkeye/Huddle/internal/config"
	"github.com/dkeye/Huddle/internal/domain"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	secret := pflag.String("secret", "", "HS256 signing secret")
	issuer := pflag.String("issuer", "", "token issuer")
	userID := pflag.StringP("user", "u", "", "user id (sub claim)")
	name := pflag.StringP("name", "n", "", "display name")
	ttl := pflag.Duration("ttl", 24*time.Hour, "token lifetime")
	pflag.Parse()

	if *secret == "" {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
		cfg, err := config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("no --secret given and config has none")
		}
		*secret = cfg.AuthSecret
		if *issuer == "" {
			*issuer = cfg.AuthIssuer
		}
	}

	user, err := domain.NewUser(domain.UserID(*userID), *name)
	if err != nil {
		log.Fatal().Err(err).Msg("bad user")
	}
	v, err := auth.NewJWTVerifier(*secret, *issuer)
	if err != nil {
		log.Fatal().Err(err).Msg("verifier")
	}
	tok, err := v.Issue(*user, *ttl)
	if err != nil {
		log.Fatal().Err(err).Msg("sign token")
	}
	fmt.Println(tok)
}
