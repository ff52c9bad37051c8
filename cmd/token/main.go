// Command token mints a bearer token for an owner id.  Accounts live in
// another system; this is for local development against the chart API.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/seating-chart/internal/utils"
)

func main() {
	_ = godotenv.Load()
	owner := flag.String("owner", "", "owner id to put in the sub claim")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if *owner == "" || secret == "" {
		fmt.Fprintln(os.Stderr, "usage: JWT_SECRET=... token -owner <id> [-ttl 1h]")
		os.Exit(2)
	}
	tok, err := utils.NewAccessToken(secret, *owner, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(tok.Token)
}
