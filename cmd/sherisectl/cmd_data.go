package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"sherise/internal/cache"
	"sherise/internal/config"
	"sherise/internal/fixtures"
	"sherise/internal/notifications"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var mergeFlags struct {
	dir      string
	manifest string
	out      string
}

var mergeDataCmd = &cobra.Command{
	Use:   "merge-data",
	Short: "Merge the per-category product files into the shop catalog file",
	Long: "Concatenates the product files named in the manifest, tags every item with its\n" +
		"file's category and writes the result as the shop's product fixture.\n" +
		"Without --dir the configured fixture source (directory or S3 bucket) is used.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		entries := fixtures.DefaultMergeManifest
		if mergeFlags.manifest != "" {
			data, err := os.ReadFile(mergeFlags.manifest)
			if err != nil {
				return fmt.Errorf("read manifest: %w", err)
			}
			if entries, err = fixtures.ParseManifest(data); err != nil {
				return err
			}
		}

		var (
			src fixtures.Source
			rdb *redis.Client
		)
		if mergeFlags.dir != "" {
			src = fixtures.DirSource{Dir: mergeFlags.dir}
		} else {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if src, err = fixtures.NewSource(ctx, cfg); err != nil {
				return err
			}
			// Servers cache decoded fixtures in Redis; an unreachable Redis has nothing to forget.
			if cfg.RedisURL != "" {
				if c, err := cache.NewClient(ctx, cfg.RedisURL); err == nil {
					rdb = c
					defer func() { _ = c.Close() }()
				}
			}
		}
		sink, ok := src.(fixtures.Sink)
		if !ok {
			return fmt.Errorf("fixture source %T is read-only", src)
		}

		items := fixtures.MergeProducts(ctx, src, entries)
		if err := fixtures.WriteMerged(ctx, sink, mergeFlags.out, items); err != nil {
			return err
		}
		if rdb != nil {
			fixtures.NewCatalog(src, rdb).Forget(ctx, mergeFlags.out)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d products to %s\n", len(items), mergeFlags.out)
		return nil
	},
}

var eventsFlags struct {
	url     string
	token   string
	timeout time.Duration
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Stream live notifications from a running server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		token := eventsFlags.token
		if token == "" {
			token = os.Getenv("SHERISE_TOKEN")
		}
		if token == "" {
			return fmt.Errorf("a token is required (--token or SHERISE_TOKEN)")
		}

		u, err := url.Parse(eventsFlags.url)
		if err != nil {
			return fmt.Errorf("invalid url: %w", err)
		}
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()

		dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
		conn, resp, err := dialer.DialContext(cmd.Context(), u.String(), nil)
		if resp != nil && resp.Body != nil {
			defer func() { _ = resp.Body.Close() }()
		}
		if err != nil {
			if resp != nil {
				return fmt.Errorf("dial %s: %s", redact(u), resp.Status)
			}
			return fmt.Errorf("dial %s: %w", redact(u), err)
		}
		defer func() { _ = conn.Close() }()

		go func() {
			<-cmd.Context().Done()
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
		}()

		out := cmd.OutOrStdout()
		for {
			if eventsFlags.timeout > 0 {
				_ = conn.SetReadDeadline(time.Now().Add(eventsFlags.timeout))
			}
			_, frame, err := conn.ReadMessage()
			if err != nil {
				if cmd.Context().Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					return nil
				}
				return err
			}
			fmt.Fprintln(out, formatEvent(frame))
		}
	},
}

// formatEvent renders a frame as "time type scope payload"; frames that are not events print as is.
func formatEvent(frame []byte) string {
	var e notifications.Event
	if err := json.Unmarshal(frame, &e); err != nil || e.Name == "" {
		return string(frame)
	}
	var payload bytes.Buffer
	if len(e.Detail) > 0 {
		_ = json.Compact(&payload, e.Detail)
	}
	return strings.TrimSpace(fmt.Sprintf("%s %-20s %-10s %s",
		e.At.Format(time.TimeOnly), e.Name, e.Scope, payload.String()))
}

func redact(u *url.URL) string {
	c := *u
	c.RawQuery = ""
	return c.String()
}

func init() {
	f := mergeDataCmd.Flags()
	f.StringVar(&mergeFlags.dir, "dir", "", "directory holding the category files (default: configured fixture source)")
	f.StringVar(&mergeFlags.manifest, "manifest", "", "YAML manifest of files and categories")
	f.StringVar(&mergeFlags.out, "out", fixtures.ProductsFile, "name of the merged file")

	ef := eventsCmd.Flags()
	ef.StringVar(&eventsFlags.url, "url", "ws://localhost:8375/api/ws", "event stream URL")
	ef.StringVar(&eventsFlags.token, "token", "", "bearer token of the member to watch as")
	ef.DurationVar(&eventsFlags.timeout, "idle-timeout", 0, "exit after this long without a frame (0 waits forever)")
}
