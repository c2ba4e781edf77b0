package main

import (
	"fmt"
	"os"
)

// @title Creatorhub API
// @version 1.0
// @description Multi-tenant creator platform: communities, courses, livestreams and paid memberships.

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token. Format: "Bearer {token}"

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
