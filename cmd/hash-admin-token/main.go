package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/Lyon85/321-Golf/internal/admin"
)

// Prints the bcrypt hash to put in ADMIN_TOKEN_HASH. The token is read from
// ADMIN_TOKEN or, if unset, from the first line of stdin.
func main() {
	token := os.Getenv("ADMIN_TOKEN")
	if token == "" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			log.Fatalf("Failed to read token: %v", err)
		}
		token = strings.TrimSpace(line)
	}

	hash, err := admin.HashToken(token)
	if err != nil {
		log.Fatalf("Failed to hash token: %v", err)
	}
	fmt.Println(hash)
}
