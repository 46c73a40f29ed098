package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"traceforge/client"
	"traceforge/domain"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/peterh/liner"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL string        `env:"CHAT_SERVER_URL,default=ws://localhost:8080/ws"`
	Username  string        `env:"CHAT_USERNAME,required=true"`
	Password  string        `env:"CHAT_PASSWORD,required=true"`
	Register  bool          `env:"CHAT_REGISTER,default=false"`
	Timeout   time.Duration `env:"CHAT_TIMEOUT,default=10s"`
	LogLevel  string        `env:"LOG_LEVEL,default=INFO"`
	// CHAT_HISTORY_FILE keeps typed lines between runs; defaults under the user config dir
	HistoryFile string `env:"CHAT_HISTORY_FILE"`
}

func main() {
	code, err := run(os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run(out io.Writer) (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()
	c, err := client.Dial(dialCtx, config.ServerURL, log)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		log.Info("Closing connection...")
		_ = c.Close()
	}()

	authenticate := c.Login
	if config.Register {
		authenticate = c.Register
	}
	if err := authenticate(dialCtx, config.Username, config.Password); err != nil {
		return exitRuntime, err
	}
	fmt.Fprintf(out, ">>> Connected to %s as %s (/history, /search <q>, /follow, /quit)\n", config.ServerURL, c.Username())

	p := printer{out: out, self: c.Username()}
	p.print(c.Messages())

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	historyFile := historyPath(config.HistoryFile)
	if f, err := os.Open(historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		saveHistory(line, historyFile)
		_ = line.Close()
	}()

	for {
		input, err := line.Prompt(c.Username() + "> ")
		if err != nil {
			// Ctrl+C, Ctrl+D and a closed stdin all end the session
			if err == liner.ErrPromptAborted || err == io.EOF {
				return exitOK, nil
			}
			return exitRuntime, err
		}
		input = strings.TrimSpace(input)
		if input != "" {
			line.AppendHistory(input)
		}

		callCtx, cancel := context.WithTimeout(ctx, config.Timeout)
		err = p.execute(callCtx, ctx, c, input)
		cancel()
		switch {
		case err == errQuit:
			return exitOK, nil
		case ctx.Err() != nil:
			return exitOK, nil
		case err != nil:
			fmt.Fprintln(out, color.Red.Render(err.Error()))
		}
	}
}

func historyPath(configured string) string {
	if configured != "" {
		return configured
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "traceforge", "chat_history")
}

func saveHistory(line *liner.State, path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = line.WriteHistory(f)
}

var errQuit = fmt.Errorf("quit")

type printer struct {
	out     io.Writer
	self    string
	lastSeq uint64
}

// execute runs one REPL line. follow uses the outer context so it lasts
// until the process is interrupted.
func (p *printer) execute(ctx, follow context.Context, c *client.Client, line string) error {
	switch {
	case line == "":
		return nil
	case line == "/quit":
		return errQuit
	case line == "/history":
		messages, err := c.History(ctx)
		if err != nil {
			return err
		}
		p.lastSeq = 0
		p.print(messages)
		return nil
	case strings.HasPrefix(line, "/search "):
		results, err := c.Search(ctx, strings.TrimPrefix(line, "/search "))
		if err != nil {
			return err
		}
		for _, m := range results {
			fmt.Fprintln(p.out, p.format(m))
		}
		return nil
	case line == "/follow":
		for {
			m, err := c.Next(follow)
			if err != nil {
				return err
			}
			p.print([]domain.Message{m})
		}
	default:
		if err := c.Send(ctx, line); err != nil {
			return err
		}
		p.print(c.Messages())
		return nil
	}
}

// print writes messages not shown yet.
func (p *printer) print(messages []domain.Message) {
	for _, m := range messages {
		if m.Seq <= p.lastSeq {
			continue
		}
		fmt.Fprintln(p.out, p.format(m))
		p.lastSeq = m.Seq
	}
}

func (p *printer) format(m domain.Message) string {
	line := fmt.Sprintf("[%s] %s: %s", m.CreatedAt.Local().Format(time.TimeOnly), m.Author, m.Body)
	switch {
	case m.IsPrivate():
		return color.Magenta.Render(line)
	case m.Author == p.self:
		return color.Cyan.Render(line)
	default:
		return line
	}
}
