package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/ieltsdesk/backend/client"
	"github.com/ieltsdesk/backend/grammar"
	"github.com/ieltsdesk/backend/subm"
	"github.com/spf13/cobra"
)

// tokenPath is where the teacher token is kept between invocations.
func tokenPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "essaycli", "token"), nil
}

func saveToken(token string) error {
	path, err := tokenPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(token), 0o600)
}

func loadToken() (string, error) {
	if token := os.Getenv("IELTS_TOKEN"); token != "" {
		return token, nil
	}
	path, err := tokenPath()
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", errors.New("not logged in, run: essaycli review login")
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(content)), nil
}

func removeToken() error {
	path, err := tokenPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func newReviewCmd(newClient func() *client.Client) *cobra.Command {
	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "Teacher operations on submitted essays",
	}

	// authed builds a client carrying the saved token.
	authed := func() (*client.Client, error) {
		token, err := loadToken()
		if err != nil {
			return nil, err
		}
		c := newClient()
		c.SetToken(token)
		return c, nil
	}

	reviewCmd.AddCommand(
		newLoginCmd(newClient),
		newLogoutCmd(authed),
		newListCmd(authed),
		newShowCmd(authed),
		newMarkCmd(authed),
		newDeleteCmd(authed),
		newDownloadCmd(authed, false),
		newDownloadCmd(authed, true),
		newCheckCmd(authed),
	)
	return reviewCmd
}

func cmdContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 2*time.Minute)
}

func newLoginCmd(newClient func() *client.Client) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in as the teacher and remember the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("IELTS_TEACHER_PASSWORD")
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()

			token, err := newClient().Login(ctx, username, password)
			if err != nil {
				return err
			}
			if err := saveToken(token); err != nil {
				return fmt.Errorf("saving token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged in.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "teacher", "teacher username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "teacher password (default $IELTS_TEACHER_PASSWORD)")
	return cmd
}

func newLogoutCmd(authed func() (*client.Client, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the teacher session",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := authed()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()

			if err := c.Logout(ctx); err != nil && !client.IsStatus(err, http.StatusUnauthorized) {
				return err
			}
			return removeToken()
		},
	}
}

func newListCmd(authed func() (*client.Client, error)) *cobra.Command {
	var search, taskType, date, checked string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List submissions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			checkedFilter, err := subm.ParseChecked(checked)
			if err != nil {
				return err
			}
			c, err := authed()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()

			list, err := c.List(ctx, subm.Filter{
				Search:   search,
				TaskType: taskType,
				Date:     date,
				Checked:  checkedFilter,
			})
			if err != nil {
				return err
			}
			printSubmissions(cmd.OutOrStdout(), list)
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "student name contains")
	cmd.Flags().StringVarP(&taskType, "task", "t", "", `"Task 1" or "Task 2"`)
	cmd.Flags().StringVarP(&date, "date", "d", "", "submission day, YYYY-MM-DD (UTC)")
	cmd.Flags().StringVarP(&checked, "checked", "c", "all", "all, checked or unchecked")
	return cmd
}

func submissionsTable(list []subm.Submission) *table.Table {
	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3498db"))
	done := lipgloss.NewStyle().Foreground(lipgloss.Color("#2ecc71"))

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "STUDENT", "TASK", "WORDS", "TIME", "SUBMITTED", "CHECKED")
	for _, s := range list {
		checked := "no"
		if s.Checked {
			checked = done.Render("yes")
		}
		t.Row(
			s.ID,
			s.StudentName,
			s.TaskType,
			strconv.Itoa(s.WordCount),
			s.TimeSpent,
			s.SubmittedAt.UTC().Format("2006-01-02 15:04"),
			checked,
		)
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == 0 {
			return header
		}
		return lipgloss.NewStyle().Padding(0, 1)
	})
	return t
}

func printSubmissions(w io.Writer, list []subm.Submission) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No submissions.")
		return
	}
	fmt.Fprintln(w, submissionsTable(list).Render())
	fmt.Fprintf(w, "%d submission(s)\n", len(list))
}

func newShowCmd(authed func() (*client.Client, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one submission with its essay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := authed()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()

			s, err := c.Get(ctx, args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			bold := lipgloss.NewStyle().Bold(true)
			fmt.Fprintf(w, "%s %s\n", bold.Render("Student:"), s.StudentName)
			fmt.Fprintf(w, "%s %s\n", bold.Render("Task:"), s.TaskType)
			fmt.Fprintf(w, "%s %s\n", bold.Render("Question:"), s.Question)
			fmt.Fprintf(w, "%s %d words in %s\n", bold.Render("Stats:"), s.WordCount, s.TimeSpent)
			fmt.Fprintf(w, "%s %t\n\n", bold.Render("Checked:"), s.Checked)
			fmt.Fprintln(w, s.EssayText)
			return nil
		},
	}
}

func newMarkCmd(authed func() (*client.Client, error)) *cobra.Command {
	var unchecked bool
	cmd := &cobra.Command{
		Use:   "mark <id>",
		Short: "Mark a submission as checked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := authed()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()

			s, err := c.SetChecked(ctx, args[0], !unchecked)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s checked=%t\n", s.ID, s.Checked)
			return nil
		},
	}
	cmd.Flags().BoolVar(&unchecked, "unchecked", false, "clear the checked flag instead")
	return cmd
}

func newDeleteCmd(authed func() (*client.Client, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a submission and its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := authed()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()

			if err := c.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newDownloadCmd(authed func() (*client.Client, error), annotated bool) *cobra.Command {
	var output string
	use, short := "download <id>", "Save the submitted PDF"
	if annotated {
		use, short = "grammar-pdf <id>", "Save a PDF with grammar mistakes marked in red"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := authed()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()

			fetch := c.DownloadPdf
			if annotated {
				fetch = c.GrammarPdf
			}
			content, filename, err := fetch(ctx, args[0])
			if err != nil {
				return err
			}

			path := output
			if path == "" {
				path = filename
			}
			if path == "" {
				path = args[0] + ".pdf"
			}
			if err := os.WriteFile(path, content, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d bytes)\n", path, len(content))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: name suggested by the server)")
	return cmd
}

func newCheckCmd(authed func() (*client.Client, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "check [file]",
		Short: "Run the grammar checker on a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var text []byte
			var err error
			if len(args) == 1 && args[0] != "-" {
				text, err = os.ReadFile(args[0])
			} else {
				text, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}

			c, err := authed()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()

			matches, err := c.GrammarCheck(ctx, string(text))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderMatches(string(text), matches))
			return nil
		},
	}
}

// renderMatches prints the text with mistakes highlighted, then one line per
// match.
func renderMatches(text string, matches []grammar.Match) string {
	mistake := lipgloss.NewStyle().Foreground(lipgloss.Color("#e74c3c")).Underline(true)

	var b strings.Builder
	for _, run := range grammar.BuildRuns(text, grammar.Spans(matches)) {
		if run.IsError {
			b.WriteString(mistake.Render(run.Text))
		} else {
			b.WriteString(run.Text)
		}
	}
	b.WriteString("\n\n")

	runes := []rune(text)
	for _, m := range matches {
		end := m.Offset + m.Length
		if m.Offset < 0 || end > len(runes) || m.Offset >= end {
			continue
		}
		fmt.Fprintf(&b, "%d:%d %q %s\n", m.Offset, m.Length, string(runes[m.Offset:end]), m.Message)
	}
	fmt.Fprintf(&b, "%d issue(s)\n", len(matches))
	return b.String()
}
