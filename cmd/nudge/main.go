// Command nudge is the Nudge CLI client.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/nudgeapp/nudge/internal/version"
)

const defaultServer = "http://localhost:8430"

func main() {
	var (
		serverURL = flag.String("server", defaultServer, "nudge server URL")
		token     = flag.String("token", os.Getenv("NUDGE_TOKEN"), "JWT auth token")
	)
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cli := &Client{
		BaseURL:    strings.TrimRight(*serverURL, "/"),
		Token:      *token,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}

	cmd := args[0]
	rest := args[1:]

	var err error
	switch cmd {
	case "version":
		err = cmdVersion(rest)
	case "status":
		err = cli.cmdStatus(rest)
	case "login":
		err = cli.cmdLogin(rest)
	case "add":
		err = cli.cmdAdd(rest)
	case "list":
		err = cli.cmdList(rest)
	case "show":
		err = cli.cmdShow(rest)
	case "done":
		err = cli.cmdDone(rest)
	case "rm":
		err = cli.cmdRemove(rest)
	case "reminders":
		err = cli.cmdReminders(rest)
	case "cancel":
		err = cli.cmdCancel(rest)
	case "tap":
		err = cli.cmdTap(rest)
	case "events":
		err = cli.cmdEvents(rest)
	case "serve":
		fmt.Fprintln(os.Stderr, "use nudged to run the server")
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `nudge — Nudge CLI

Usage:
  nudge [flags] <command> [args]

Flags:
  --server  <url>    server URL (default: http://localhost:8430)
  --token   <token>  JWT auth token (or $NUDGE_TOKEN)

Commands:
  version                 print version
  status                  show server status
  login <username>        log in and print a token
  add <title>             create a task (--date, --time, --notes, --name)
  list                    list open tasks (--all includes done)
  show <id>               show one task
  done <id>               mark a task done
  rm <id>                 delete a task
  reminders               list scheduled reminders
  cancel <id>             cancel one reminder (--all cancels every one)
  tap <id>                simulate tapping a delivered reminder
  events                  show recent reminder events (--limit)
`)
}

// --- version ---

func cmdVersion(_ []string) error {
	fmt.Printf("nudge %s (commit %s, built %s)\n",
		version.Version, version.Commit, version.BuildDate)
	return nil
}
