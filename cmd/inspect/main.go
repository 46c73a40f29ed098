package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"traceforge/domain"
	"traceforge/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

func main() {
	if err := run(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(out io.Writer) error {
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	limit := flag.Int("limit", cfg.Limit, "Number of recent messages to list")
	showUsers := flag.Bool("users", true, "List registered users")
	pdfPath := flag.String("pdf", "", "Also export the listed messages to this PDF file")
	flag.Parse()

	db, err := openDB(cfg.BadgerFilepath)
	if err != nil {
		return fmt.Errorf("error while opening Badger: %w", err)
	}
	defer db.Close()

	log := logs.GetLoggerFromLevel(slog.LevelError)

	if *showUsers {
		users, err := repositories.NewUserRepository(db, log).ListUsers()
		if err != nil {
			return err
		}
		renderUsers(out, users)
	}

	reader := repositories.NewMessageReader(db, log)
	count, err := reader.Count()
	if err != nil {
		return err
	}
	messages, err := reader.Recent(*limit)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d of %d messages\n", len(messages), count)
	renderMessages(out, messages, cfg.Colours)

	if *pdfPath != "" {
		if err := writePDF(*pdfPath, messages); err != nil {
			return err
		}
		fmt.Fprintf(out, "Transcript written to %s\n", *pdfPath)
	}
	return nil
}

// writePDF reports the close error, which is where a short write surfaces.
func writePDF(path string, messages []domain.Message) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()
	return exportPDF(f, "Chat transcript", messages)
}

func renderUsers(out io.Writer, users []repositories.User) {
	table := newTable(out)
	table.SetHeader([]string{"Username", "Registered"})
	for _, u := range users {
		table.Append([]string{u.Username, u.CreatedAt.Format("2006-01-02 15:04:05")})
	}
	table.Render()
}

func renderMessages(out io.Writer, messages []domain.Message, colours bool) {
	table := newTable(out)
	table.SetHeader([]string{"Seq", "Time", "Author", "To", "Body"})
	for _, m := range messages {
		to := "everyone"
		body := m.Body
		if m.IsPrivate() {
			to, _ = m.Recipient()
			to = "@" + to
			if colours {
				to = color.New(color.FgMagenta, color.OpBold).Render(to)
				body = color.Magenta.Render(body)
			}
		}
		table.Append([]string{
			strconv.FormatUint(m.Seq, 10),
			m.CreatedAt.Format("15:04:05"),
			m.Author,
			to,
			strings.ReplaceAll(body, "\n", " "),
		})
	}
	table.Render()
}

func newTable(out io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)
	return badger.Open(opts)
}
