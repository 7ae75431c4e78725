package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"git.sr.ht/~jakintosh/ssobridge/pkg/client"
	"git.sr.ht/~jakintosh/ssobridge/pkg/idle"
	"git.sr.ht/~jakintosh/ssobridge/pkg/ssotest"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

const usage = `usage: ssoclient <command> [flags]

commands:
  config    print the control plane login URL
  mint      sign a control plane token with SSO_SECRET
  login     present a control plane token and print the access token
  session   log in, then run the idle monitor on stdin activity
  sign-out  sign out and clear local state
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "config":
		err = runConfig(ctx, os.Args[2:])
	case "mint":
		err = runMint(os.Args[2:], os.Stdout)
	case "login":
		err = runLogin(ctx, os.Args[2:])
	case "session":
		err = runSession(ctx, os.Args[2:], os.Stdin, os.Stderr)
	case "sign-out":
		err = runSignOut(ctx, os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type commonFlags struct {
	baseURL   string
	adminPath string
	state     string
	verbose   bool
}

func newFlagSet(name string) (*flag.FlagSet, *commonFlags) {
	common := new(commonFlags)
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.StringVar(&common.baseURL, "url", envOr("SSOBRIDGE_URL", "http://localhost:1337"), "bridge base URL")
	fs.StringVar(&common.adminPath, "admin-path", "/admin", "admin path the refresh cookie is scoped to")
	fs.StringVar(&common.state, "state", defaultStatePath(), "file holding client storage")
	fs.BoolVar(&common.verbose, "v", false, "debug logging")
	return fs, common
}

func (f *commonFlags) client() (*client.Client, *logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if f.verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	storage, err := client.OpenFileStorage(f.state)
	if err != nil {
		return nil, nil, err
	}
	c, err := client.New(f.baseURL, client.Options{
		AdminPath: f.adminPath,
		Storage:   storage,
		Log:       log,
	})
	if err != nil {
		return nil, nil, err
	}
	return c, log, nil
}

func runConfig(ctx context.Context, args []string) error {
	fs, common := newFlagSet("config")
	fs.Parse(args)

	c, _, err := common.client()
	if err != nil {
		return err
	}
	cfg, err := c.FetchConfig(ctx)
	if err != nil {
		return err
	}
	fmt.Println(cfg.SSOLoginURL)
	return nil
}

func runMint(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("mint", flag.ExitOnError)
	email := fs.String("email", "", "email the token vouches for")
	ttl := fs.Duration("ttl", ssotest.DefaultTTL, "token lifetime")
	secret := fs.String("secret", os.Getenv("SSO_SECRET"), "shared signing secret")
	fs.Parse(args)

	if *email == "" {
		return errors.New("-email is required")
	}
	if *secret == "" {
		return errors.New("-secret or SSO_SECRET is required")
	}

	token, err := ssotest.NewMinter(*secret).TokenWithTTL(*email, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}

func runLogin(ctx context.Context, args []string) error {
	fs, common := newFlagSet("login")
	token := fs.String("token", "", "control plane token")
	cp := fs.String("cp", "", "control plane URL to remember")
	fs.Parse(args)

	if *token == "" {
		return errors.New("-token is required")
	}

	c, _, err := common.client()
	if err != nil {
		return err
	}
	if err := c.Login(ctx, *token, *cp); err != nil {
		return err
	}
	fmt.Println(c.AccessToken())
	return nil
}

func runSignOut(ctx context.Context, args []string) error {
	fs, common := newFlagSet("sign-out")
	token := fs.String("token", "", "control plane token for revocation (optional)")
	next := fs.String("next", "", "where the sign-out chain continues")
	fs.Parse(args)

	c, _, err := common.client()
	if err != nil {
		return err
	}
	return c.SignOut(ctx, *token, *next)
}

// runSession logs in and then treats every stdin line as activity. The
// words "continue" and "sign-out" answer the idle warning.
func runSession(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	fs, common := newFlagSet("session")
	token := fs.String("token", "", "control plane token")
	warnAfter := fs.Duration("warn-after", idle.DefaultConfig().WarnAfter, "idle time before the warning")
	expireAfter := fs.Duration("expire-after", idle.DefaultConfig().ExpireAfter, "idle time before expiry")
	fs.Parse(args)

	if *token == "" {
		return errors.New("-token is required")
	}

	c, log, err := common.client()
	if err != nil {
		return err
	}
	if err := c.Login(ctx, *token, ""); err != nil {
		return err
	}
	fmt.Fprintln(out, "signed in")

	cfg := idle.DefaultConfig()
	cfg.WarnAfter = *warnAfter
	cfg.ExpireAfter = *expireAfter

	tasks := idle.NewScheduler(clockwork.NewRealClock())
	defer tasks.CancelAll()

	monitor := idle.NewMonitor(tasks, cfg, c, c, &printPresenter{out: out}, log)
	lost := make(chan struct{})
	watcher := idle.NewWatcher(tasks, c, time.Second, func() { close(lost) })
	monitor.Start()
	watcher.Start()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := readLines(ctx, in)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-lost:
			loginURL, err := c.LoginURL(ctx)
			if err != nil {
				fmt.Fprintln(out, "session ended")
				return nil
			}
			fmt.Fprintf(out, "session ended, sign in again at %s\n", loginURL)
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			switch line {
			case "continue":
				monitor.Continue(ctx)
			case "sign-out":
				monitor.SignOut()
				if err := c.SignOut(ctx, "", ""); err != nil {
					log.WithError(err).Warn("sign-out request failed")
				}
			default:
				monitor.Activity("keydown")
			}
		}
	}
}

// readLines sends each trimmed line of in until in is exhausted or ctx is
// done. The channel is closed either way.
func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

type printPresenter struct {
	out io.Writer
}

func (p *printPresenter) ShowWarning(remaining time.Duration) {
	fmt.Fprintf(p.out, "idle: signing out in %s, type \"continue\" to stay\n", remaining.Round(time.Second))
}

func (p *printPresenter) Tick(remaining time.Duration) {
	if remaining%(30*time.Second) < time.Second {
		fmt.Fprintf(p.out, "idle: %s left\n", remaining.Round(time.Second))
	}
}

func (p *printPresenter) HideWarning() {
	fmt.Fprintln(p.out, "idle: warning dismissed")
}

func envOr(name string, fallback string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}
	return fallback
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "ssoclient", "storage.yaml")
}
