package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Client holds HTTP client state for CLI commands.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// do performs a request with auth and JSON headers and decodes the response
// into v (may be nil).
func (c *Client) do(method, path string, body any, v any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if v != nil && resp.ContentLength != 0 && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(v)
	}
	return nil
}

func (c *Client) get(path string, v any) error {
	return c.do(http.MethodGet, path, nil, v)
}

// apiTask mirrors the server's task payload.
type apiTask struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Notes string `json:"notes,omitempty"`
	Date  string `json:"date,omitempty"`
	Time  string `json:"time,omitempty"`
	Done  bool   `json:"done"`
}

// apiReminder mirrors the server's reminder payload.
type apiReminder struct {
	ID      string `json:"id"`
	Content struct {
		Title    string            `json:"title"`
		Body     string            `json:"body"`
		Metadata map[string]string `json:"metadata"`
	} `json:"content"`
	Trigger struct {
		At time.Time `json:"at"`
	} `json:"trigger"`
}

// apiEvent mirrors the server's reminder event payload.
type apiEvent struct {
	Type       string    `json:"type"`
	TaskID     string    `json:"task_id,omitempty"`
	TaskTitle  string    `json:"task_title,omitempty"`
	ReminderID string    `json:"reminder_id,omitempty"`
	At         time.Time `json:"at"`
}

// newTable returns a writer with the house style applied.
func newTable(header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.Style().Options.SeparateRows = false
	colored := make(table.Row, len(header))
	for i, h := range header {
		colored[i] = text.FgGreen.Sprintf("%v", h)
	}
	t.AppendHeader(colored)
	return t
}

// --- status ---

func (c *Client) cmdStatus(_ []string) error {
	var result map[string]string
	if err := c.get("/api/status", &result); err != nil {
		return err
	}
	fmt.Printf("status:  %s\n", result["status"])
	fmt.Printf("version: %s\n", result["version"])
	return nil
}

// --- login ---

func (c *Client) cmdLogin(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: nudge login <username>")
	}
	username := args[0]

	fmt.Fprint(os.Stderr, "password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")

	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(http.MethodPost, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &resp); err != nil {
		return err
	}

	fmt.Println(resp.Token)
	fmt.Fprintln(os.Stderr, "export NUDGE_TOKEN to authenticate future commands")
	return nil
}

// --- tasks ---

func (c *Client) cmdAdd(args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	date := fs.String("date", "", "due date (2006-01-02)")
	due := fs.String("time", "", "due time (15:04)")
	notes := fs.String("notes", "", "free-form notes")
	name := fs.String("name", "", "display name for the reminder title")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: nudge add <title> [--date 2006-01-02 --time 15:04]")
	}
	title := strings.Join(fs.Args(), " ")

	payload := map[string]string{"title": title}
	if *date != "" {
		payload["date"] = *date
	}
	if *due != "" {
		payload["time"] = *due
	}
	if *notes != "" {
		payload["notes"] = *notes
	}
	if *name != "" {
		payload["display_name"] = *name
	}

	var created apiTask
	if err := c.do(http.MethodPost, "/api/tasks", payload, &created); err != nil {
		return err
	}
	fmt.Printf("created task %s\n", created.ID)
	return nil
}

func (c *Client) cmdList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	all := fs.Bool("all", false, "include done tasks")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := "/api/tasks?done=false"
	if *all {
		path = "/api/tasks"
	}
	var tasks []apiTask
	if err := c.get(path, &tasks); err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("no tasks")
		return nil
	}

	t := newTable(table.Row{"ID", "Title", "Due", "Status"})
	for _, tk := range tasks {
		t.AppendRow(table.Row{tk.ID, tk.Title, formatDue(tk.Date, tk.Time), statusLabel(tk.Done)})
	}
	t.Render()
	return nil
}

func (c *Client) cmdShow(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: nudge show <id>")
	}
	var tk apiTask
	if err := c.get("/api/tasks/"+args[0], &tk); err != nil {
		return err
	}

	title := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Println(title(tk.Title))
	fmt.Printf("id:     %s\n", tk.ID)
	if due := formatDue(tk.Date, tk.Time); due != "" {
		fmt.Printf("due:    %s\n", due)
	}
	fmt.Printf("status: %s\n", statusLabel(tk.Done))
	if tk.Notes != "" {
		fmt.Printf("notes:  %s\n", tk.Notes)
	}
	return nil
}

func (c *Client) cmdDone(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: nudge done <id>")
	}
	if err := c.do(http.MethodPost, "/api/tasks/"+args[0]+"/done", nil, nil); err != nil {
		return err
	}
	fmt.Printf("task %s done\n", args[0])
	return nil
}

func (c *Client) cmdRemove(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: nudge rm <id>")
	}
	if err := c.do(http.MethodDelete, "/api/tasks/"+args[0], nil, nil); err != nil {
		return err
	}
	fmt.Printf("task %s removed\n", args[0])
	return nil
}

// --- reminders ---

func (c *Client) cmdReminders(_ []string) error {
	var reminders []apiReminder
	if err := c.get("/api/reminders", &reminders); err != nil {
		return err
	}
	if len(reminders) == 0 {
		fmt.Println("no scheduled reminders")
		return nil
	}

	t := newTable(table.Row{"ID", "Title", "Fires At", "Task"})
	for _, r := range reminders {
		t.AppendRow(table.Row{
			r.ID,
			r.Content.Title,
			r.Trigger.At.Local().Format("2006-01-02 15:04"),
			r.Content.Metadata["task_id"],
		})
	}
	t.Render()
	return nil
}

func (c *Client) cmdCancel(args []string) error {
	fs := flag.NewFlagSet("cancel", flag.ExitOnError)
	all := fs.Bool("all", false, "cancel every scheduled reminder")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *all {
		if err := c.do(http.MethodDelete, "/api/reminders", nil, nil); err != nil {
			return err
		}
		fmt.Println("all reminders canceled")
		return nil
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: nudge cancel <reminder-id> | nudge cancel --all")
	}
	id := fs.Arg(0)
	if err := c.do(http.MethodDelete, "/api/reminders/"+id, nil, nil); err != nil {
		return err
	}
	fmt.Printf("reminder %s canceled\n", id)
	return nil
}

func (c *Client) cmdTap(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: nudge tap <reminder-id>")
	}
	if err := c.do(http.MethodPost, "/api/reminders/"+args[0]+"/tap", nil, nil); err != nil {
		return err
	}
	fmt.Printf("tapped reminder %s\n", args[0])
	return nil
}

// --- events ---

func (c *Client) cmdEvents(args []string) error {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	limit := fs.Int("limit", 20, "number of events to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var evs []apiEvent
	if err := c.get(fmt.Sprintf("/api/events?limit=%d", *limit), &evs); err != nil {
		return err
	}
	if len(evs) == 0 {
		fmt.Println("no events")
		return nil
	}

	t := newTable(table.Row{"At", "Type", "Task", "Reminder"})
	for _, ev := range evs {
		t.AppendRow(table.Row{
			ev.At.Local().Format("15:04:05"),
			eventLabel(ev.Type),
			ev.TaskTitle,
			ev.ReminderID,
		})
	}
	t.Render()
	return nil
}

// --- helpers ---

func formatDue(date, due string) string {
	switch {
	case date == "":
		return ""
	case due == "":
		return date
	default:
		return date + " " + due
	}
}

func statusLabel(done bool) string {
	if done {
		return color.GreenString("done")
	}
	return color.YellowString("open")
}

func eventLabel(typ string) string {
	switch typ {
	case "scheduled":
		return color.CyanString(typ)
	case "delivered":
		return color.GreenString(typ)
	case "tapped":
		return color.MagentaString(typ)
	case "canceled":
		return color.YellowString(typ)
	default:
		return typ
	}
}
