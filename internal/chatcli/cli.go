// cli.go holds the chatsync CLI entrypoint (Main), default constants, flags, and the subcommands.
package chatcli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/contenox/chatsync/chattypes"
	"github.com/contenox/chatsync/libtracker"
	"github.com/contenox/chatsync/syncengine"
	"github.com/spf13/cobra"
)

const (
	defaultAPIURL   = "http://127.0.0.1:8000"
	defaultPageSize = syncengine.DefaultPageSize
	defaultAckDelay = time.Second
)

var flags flagValues
var verbose bool

var rootCmd = &cobra.Command{
	Use:   "chatsync",
	Short: "Follow and page through a chat channel from the terminal.",
	Long: `chatsync keeps one channel's timeline in sync with the chat API and its realtime
event stream, and prints it to the terminal.

  Examples:
    chatsync tail 01J0CHANNEL          # print the newest page, follow live, send lines from stdin
    chatsync history 01J0CHANNEL -n 3  # page three times backwards and print everything

  Settings are read from ./.chatsync/config.yaml or ~/.chatsync/config.yaml; flags override them.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

var tailCmd = &cobra.Command{
	Use:   "tail <channel-id>",
	Short: "Print the newest messages, follow the channel and send stdin lines.",
	Args:  cobra.ExactArgs(1),
	RunE:  runTail,
}

var historyCmd = &cobra.Command{
	Use:   "history <channel-id>",
	Short: "Load older pages of a channel and print them.",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var sendCmd = &cobra.Command{
	Use:   "send <channel-id> <message>",
	Short: "Send one message, optionally with attachments and a reply.",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runSend,
}

var (
	historyPages int
	sendFiles    []string
	sendReplyTo  string
	sendMention  bool
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.apiURL, "api-url", "", "Chat API base URL")
	pf.StringVar(&flags.filesURL, "files-url", "", "File server base URL (default: api-url)")
	pf.StringVar(&flags.token, "token", "", "Session token")
	pf.StringVar(&flags.natsURL, "nats", "", "NATS URL for realtime events")
	pf.StringVar(&flags.valkeyAddr, "valkey", "", "Valkey address for the user and channel caches")
	pf.IntVar(&flags.pageSize, "page-size", 0, "History page size")
	pf.DurationVar(&flags.ackDelay, "ack-delay", 0, "Delay before a read position is sent")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Log activity to stderr")

	historyCmd.Flags().IntVarP(&historyPages, "pages", "n", 1, "Number of older pages to load (0: until exhausted)")

	sendCmd.Flags().StringSliceVarP(&sendFiles, "file", "f", nil, "File to attach (repeatable)")
	sendCmd.Flags().StringVar(&sendReplyTo, "reply", "", "Message id to reply to")
	sendCmd.Flags().BoolVar(&sendMention, "mention", false, "Mention the author of the replied message")

	rootCmd.AddCommand(tailCmd, historyCmd, sendCmd)
}

// Main runs the chatsync CLI.
func Main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads settings, builds the runtime and returns a context cancelled on interrupt.
func setup(cmd *cobra.Command) (context.Context, *appRuntime, func(), error) {
	cfg, path, err := loadLocalConfig(configPaths())
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		return nil, nil, nil, err
	}
	if path != "" {
		slog.Debug("Loaded config", "path", path)
	}
	s, err := resolveSettings(cfg, flags)
	if err != nil {
		return nil, nil, nil, err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	ctx = libtracker.WithNewRequestID(ctx)
	rt, err := buildRuntime(ctx, s, slog.Default())
	if err != nil {
		stop()
		return nil, nil, nil, err
	}
	cleanup := func() {
		if err := rt.close(); err != nil {
			slog.Warn("Shutdown finished with errors", "error", err)
		}
		stop()
	}
	return ctx, rt, cleanup, nil
}

func runTail(cmd *cobra.Command, args []string) error {
	ctx, rt, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	engine, err := rt.manager.Open(ctx, args[0])
	if err != nil {
		return fmt.Errorf("attach %s: %w", args[0], err)
	}
	out := cmd.OutOrStdout()
	lookup := rt.users.Ensure
	engine.SetAtBottom(ctx, true)

	printed := make(map[string]bool)
	render := func() {
		msgs := engine.Snapshot()
		fresh := make([]chattypes.Message, 0)
		for _, m := range msgs {
			if !printed[m.ID] {
				fresh = append(fresh, m)
				printed[m.ID] = true
			}
		}
		writeTimeline(ctx, out, fresh, lookup)
		names := make([]string, 0)
		for _, id := range engine.TypingUsers() {
			names = append(names, displayName(chattypes.Message{AuthorID: id}, lookup(ctx, id)))
		}
		writeTyping(out, names)
	}
	render()

	lines := make(chan string)
	go readLines(cmd.InOrStdin(), lines)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-engine.Updates():
			render()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if _, err := engine.Send(ctx, syncengine.SendRequest{Content: line}); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "send failed: %v\n", err)
			}
		}
	}
}

func readLines(r io.Reader, out chan<- string) {
	defer close(out)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		out <- sc.Text()
	}
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, rt, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	engine, err := rt.manager.Open(ctx, args[0])
	if err != nil {
		return fmt.Errorf("attach %s: %w", args[0], err)
	}
	for i := 0; historyPages == 0 || i < historyPages; i++ {
		if engine.IsExhausted() {
			break
		}
		if _, err := engine.LoadOlder(ctx); err != nil {
			return fmt.Errorf("load older: %w", err)
		}
	}
	writeTimeline(ctx, cmd.OutOrStdout(), engine.Snapshot(), rt.users.Ensure)
	if engine.IsExhausted() {
		fmt.Fprintln(cmd.OutOrStdout(), "-- beginning of channel")
	}
	return nil
}

func runSend(cmd *cobra.Command, args []string) error {
	ctx, rt, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	engine, err := rt.manager.Open(ctx, args[0])
	if err != nil {
		return fmt.Errorf("attach %s: %w", args[0], err)
	}

	req := syncengine.SendRequest{Content: strings.Join(args[1:], " ")}
	for _, p := range sendFiles {
		a, err := readAttachment(p)
		if err != nil {
			return err
		}
		req.Attachments = append(req.Attachments, a)
	}
	if sendReplyTo != "" {
		req.Replies = []chattypes.Reply{{ID: sendReplyTo, Mention: sendMention}}
	}
	if len(req.Attachments) > 0 {
		req.Progress = func(index int, sent, total int64) {
			fmt.Fprintf(cmd.ErrOrStderr(), "\rupload %s: %d/%d bytes", req.Attachments[index].Filename, sent, total)
			if sent == total {
				fmt.Fprintln(cmd.ErrOrStderr())
			}
		}
	}

	msg, err := engine.Send(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg.ID)
	return nil
}
