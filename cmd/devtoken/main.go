// Command devtoken prints a bearer token for local testing, signed with
// JWT_SECRET the way the identity provider signs real ones.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/cinema-booking/internal/utils"
)

func main() {
	_ = godotenv.Load()

	sub := flag.String("sub", "user_dev", "user id (sub claim)")
	role := flag.String("role", "", "role claim, e.g. admin")
	email := flag.String("email", "", "email claim")
	name := flag.String("name", "", "name claim")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	tok, err := utils.NewAccessToken(secret, utils.Subject{UserID: *sub, Role: *role, Email: *email, Name: *name}, *ttl)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(tok.Token)
}
