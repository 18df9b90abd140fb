// facecamctl drives a running facecam through its control API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"

	"github.com/teslashibe/go-facecam/internal/httpc"
)

type command struct {
	method string
	path   string
	help   string
}

var commands = map[string]command{
	"status":  {http.MethodGet, "/api/status", "Show stream state and counters"},
	"start":   {http.MethodPost, "/api/stream/start", "Start streaming"},
	"pause":   {http.MethodPost, "/api/stream/pause", "Toggle pause"},
	"stop":    {http.MethodPost, "/api/stream/stop", "Stop streaming and release the camera"},
	"capture": {http.MethodPost, "/api/snapshot", "Save a snapshot of the last frame"},
	"camera":  {http.MethodGet, "/api/camera", "Show capture settings"},
	"presets": {http.MethodGet, "/api/camera/presets", "List capture presets"},
}

func usage(fs *pflag.FlagSet) {
	fmt.Fprintln(os.Stderr, "usage: facecamctl [--addr host:port] <command>")
	fmt.Fprintln(os.Stderr, "\ncommands:")
	for _, name := range []string{"status", "start", "pause", "stop", "capture", "camera", "presets"} {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", name, commands[name].help)
	}
	fmt.Fprintf(os.Stderr, "  %-8s %s\n", "watch", "Print lifecycle events as they happen")
	fmt.Fprintln(os.Stderr, "\nflags:")
	fs.PrintDefaults()
}

func main() {
	fs := pflag.NewFlagSet("facecamctl", pflag.ContinueOnError)
	addr := fs.StringP("addr", "a", envOr("FACECAM_WEB_LISTEN", "127.0.0.1:8090"), "facecam control API address")
	timeout := fs.Duration("timeout", 5*time.Second, "Request timeout")
	fs.Usage = func() { usage(fs) }
	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}
	if fs.NArg() != 1 {
		usage(fs)
		os.Exit(2)
	}

	host := *addr
	if strings.HasPrefix(host, ":") {
		host = "127.0.0.1" + host
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	name := fs.Arg(0)
	if name == "watch" {
		if err := watch(ctx, host); err != nil {
			fmt.Fprintf(os.Stderr, "facecamctl: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "facecamctl: unknown command %q\n", name)
		usage(fs)
		os.Exit(2)
	}

	ctx, cancelReq := context.WithTimeout(ctx, *timeout)
	defer cancelReq()

	var out any
	if err := httpc.DoJSON(ctx, cmd.method, "http://"+host+cmd.path, &out); err != nil {
		fmt.Fprintf(os.Stderr, "facecamctl: %s: %v\n", name, err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}

// watch prints every event from /ws/events until ctx is done or the
// server closes the connection.
func watch(ctx context.Context, host string) error {
	u := url.URL{Scheme: "ws", Host: host, Path: "/ws/events"}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u.String(), err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		fmt.Println(string(data))
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
