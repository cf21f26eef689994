// Command uabrowse is a terminal browser for a running uaserver gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dd0wney/cluso-uaspace/pkg/ua"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "gateway base URL")
	start := flag.String("node", "i=84", "node to start browsing from")
	user := flag.String("user", "", "username for basic auth")
	password := flag.String("password", "", "password for basic auth")
	token := flag.String("token", "", "bearer token")
	login := flag.Bool("login", false, "exchange basic credentials for a token first")
	flag.Parse()

	id, err := ua.ParseNodeID(*start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -node: %v\n", err)
		os.Exit(2)
	}

	c := newClient(*addr)
	c.username, c.password, c.token = *user, *password, *token
	if *login {
		if err := c.login(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
			os.Exit(1)
		}
	}

	p := tea.NewProgram(initialModel(c, id), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
