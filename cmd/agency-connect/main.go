package main

// @title           Agency Connect API
// @version         1.0
// @description     OAuth connection service. Connects an agency to Slack, Gmail, Google Ads and Meta Ads and stores the credentials encrypted.

// @BasePath  /
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Session JWT issued by the main application. Format: "Bearer {token}"

import (
	"os"

	"github.com/custodia-labs/agency-connect/internal/cli"
)

var version = "dev"

func main() {
	cli.Version = version
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
