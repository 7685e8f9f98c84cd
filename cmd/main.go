// cmd/main.go
package main

import (
	"jobagent-api/app"
)

// @title           Job Agent OAuth API
// @version         1.0
// @description     OAuth2 authorization service for agent-driven job search and applications.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app.Run()
}
