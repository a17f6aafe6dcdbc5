// attestctl is the operator CLI: it seeds users and manages the bearer
// tokens the attest service authenticates with.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"certflow/pkg/authn"
	"certflow/pkg/db"
	"certflow/services/attest/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "user":
		runUser(os.Args[2:])
	case "token":
		runToken(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: attestctl user create --id <user_id> [--role <role>]")
	fmt.Fprintln(os.Stderr, "       attestctl user deactivate --id <user_id>")
	fmt.Fprintln(os.Stderr, "       attestctl token issue --user <user_id>")
	fmt.Fprintln(os.Stderr, "       attestctl token revoke --user <user_id>")
}

func runUser(args []string) {
	if len(args) < 1 {
		usage()
		os.Exit(2)
	}
	switch args[0] {
	case "create":
		fs := flag.NewFlagSet("user create", flag.ExitOnError)
		id := fs.String("id", "", "user id")
		role := fs.String("role", "USER", "coarse role")
		_ = fs.Parse(args[1:])
		mustID(*id)
		pool := connect()
		defer pool.Close()
		_, err := pool.Exec(context.Background(), `
INSERT INTO users(user_id,role) VALUES($1,$2)
ON CONFLICT (user_id) DO UPDATE SET role=EXCLUDED.role, status='ACTIVE'
`, *id, *role)
		fail(err)
		fmt.Printf("user %s active with role %s\n", *id, *role)
	case "deactivate":
		fs := flag.NewFlagSet("user deactivate", flag.ExitOnError)
		id := fs.String("id", "", "user id")
		_ = fs.Parse(args[1:])
		mustID(*id)
		pool := connect()
		defer pool.Close()
		_, err := pool.Exec(context.Background(), `UPDATE users SET status='INACTIVE' WHERE user_id=$1`, *id)
		fail(err)
		fmt.Printf("user %s deactivated\n", *id)
	default:
		usage()
		os.Exit(2)
	}
}

func runToken(args []string) {
	if len(args) < 1 {
		usage()
		os.Exit(2)
	}
	switch args[0] {
	case "issue":
		fs := flag.NewFlagSet("token issue", flag.ExitOnError)
		user := fs.String("user", "", "user id")
		_ = fs.Parse(args[1:])
		mustID(*user)
		token := randomToken()
		pool := connect()
		defer pool.Close()
		_, err := pool.Exec(context.Background(), `
INSERT INTO user_credentials(token_hash,user_id) VALUES($1,$2)
`, authn.HashToken(token), *user)
		fail(err)
		// The raw token is printed once and never stored.
		fmt.Println(token)
	case "revoke":
		fs := flag.NewFlagSet("token revoke", flag.ExitOnError)
		user := fs.String("user", "", "user id")
		_ = fs.Parse(args[1:])
		mustID(*user)
		pool := connect()
		defer pool.Close()
		_, err := pool.Exec(context.Background(), `
UPDATE user_credentials SET revoked_at=now() WHERE user_id=$1 AND revoked_at IS NULL
`, *user)
		fail(err)
		fmt.Printf("tokens for %s revoked\n", *user)
	default:
		usage()
		os.Exit(2)
	}
}

func connect() *pgxpool.Pool {
	cfg := config.Load()
	return db.MustConnect(context.Background(), cfg.DatabaseURL)
}

func randomToken() string {
	b := make([]byte, 24)
	_, _ = rand.Read(b)
	return "tok_" + hex.EncodeToString(b)
}

func mustID(id string) {
	if strings.TrimSpace(id) == "" {
		usage()
		os.Exit(2)
	}
}

func fail(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
