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
	"strings"
	"syscall"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/five82/timebank/internal/app"
	"github.com/five82/timebank/internal/ledger"
	"github.com/five82/timebank/internal/views"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("timebank", flag.ContinueOnError)
	configPath := fs.String("config", "", "override config path (optional)")
	statePath := fs.String("state", "", "override state file path (optional)")
	pollSeconds := fs.Int("poll", 0, "refresh interval in seconds (optional, defaults to 15s)")
	debug := fs.Bool("debug", false, "log at debug level")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: timebank [flags] [login|register|logout|status|users|version]\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: *configPath,
		StatePath:  *statePath,
		PollEvery:  *pollSeconds,
		Version:    version,
		Debug:      *debug,
	}

	var err error
	switch cmd := fs.Arg(0); cmd {
	case "":
		err = app.Run(ctx, opts)
	case "login":
		err = withEnv(opts, func(env *app.Env) error { return login(ctx, env, fs.Args()[1:]) })
	case "register":
		err = withEnv(opts, func(env *app.Env) error { return register(ctx, env, fs.Args()[1:]) })
	case "logout":
		err = withEnv(opts, func(env *app.Env) error { return logout(ctx, env) })
	case "status":
		err = withEnv(opts, func(env *app.Env) error { return status(ctx, env, os.Stdout) })
	case "users":
		err = withEnv(opts, func(env *app.Env) error { return users(ctx, env, os.Stdout) })
	case "version":
		fmt.Println("timebank", version)
	default:
		fmt.Fprintf(os.Stderr, "timebank: unknown command %q\n", cmd)
		fs.Usage()
		return 2
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "timebank: %v\n", err)
		return 1
	}
	return 0
}

func withEnv(opts app.Options, fn func(*app.Env) error) error {
	env, err := app.Open(opts)
	if err != nil {
		return err
	}
	return errors.Join(fn(env), env.Close())
}

func login(ctx context.Context, env *app.Env, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	in := bufio.NewReader(os.Stdin)
	if err := prompt(in, "Email", email); err != nil {
		return err
	}
	password, err := readPassword(in, "Password")
	if err != nil {
		return err
	}

	user, err := env.Coord.Login(ctx, *email, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	fmt.Printf("Logged in as %s\n", views.DisplayName(user))
	return nil
}

func register(ctx context.Context, env *app.Env, args []string) error {
	var req ledger.RegisterRequest
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.StringVar(&req.Email, "email", "", "account email")
	fs.StringVar(&req.FullName, "name", "", "full name")
	fs.StringVar(&req.Username, "username", "", "username")
	fs.StringVar(&req.School, "school", "", "school")
	fs.StringVar(&req.Grade, "grade", "", "grade")
	fs.StringVar(&req.Major, "major", "", "major (optional)")
	fs.StringVar(&req.PhoneNumber, "phone", "", "phone number (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	in := bufio.NewReader(os.Stdin)
	for _, p := range []struct {
		label string
		dest  *string
	}{
		{"Email", &req.Email},
		{"Full name", &req.FullName},
		{"Username", &req.Username},
		{"School", &req.School},
		{"Grade", &req.Grade},
	} {
		if err := prompt(in, p.label, p.dest); err != nil {
			return err
		}
	}
	password, err := readPassword(in, "Password")
	if err != nil {
		return err
	}
	confirm, err := readPassword(in, "Confirm password")
	if err != nil {
		return err
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}
	req.Password = password

	user, err := env.Coord.Register(ctx, req)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	fmt.Printf("Registered and logged in as %s\n", views.DisplayName(user))
	return nil
}

// prompt asks for a value on stderr unless dest is already set.
func prompt(in *bufio.Reader, label string, dest *string) error {
	if strings.TrimSpace(*dest) != "" {
		return nil
	}
	fmt.Fprintf(os.Stderr, "%s: ", label)
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	*dest = strings.TrimSpace(line)
	return nil
}

// readPassword reads without echo from a terminal, or one line otherwise.
func readPassword(in *bufio.Reader, label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprintf(os.Stderr, "%s: ", label)
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func logout(ctx context.Context, env *app.Env) error {
	if !env.LoggedIn() {
		fmt.Println("Not logged in")
		return nil
	}
	if err := env.Coord.Logout(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	fmt.Println("Logged out")
	return nil
}

func status(ctx context.Context, env *app.Env, w io.Writer) error {
	if !env.LoggedIn() {
		return errors.New("not logged in; run 'timebank login'")
	}
	coord := env.Coord
	userID, err := env.EnsureUser(ctx)
	if err != nil {
		return err
	}
	if err := coord.RefreshUserContext(ctx, userID); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	if err := coord.RefreshSessions(ctx); err != nil {
		return fmt.Errorf("refresh sessions: %w", err)
	}

	dash := views.NewDashboard(coord, nil)
	defer dash.Close()

	user, ok := dash.User()
	if !ok {
		return errors.New("profile not available")
	}
	bal := dash.Balance()
	confirmed := "confirmed"
	if !bal.Confirmed {
		confirmed = "unconfirmed"
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "User\t%s <%s>\n", views.DisplayName(user), user.Email)
	fmt.Fprintf(tw, "Balance\t%s credits (%s)\n", views.Credits(bal.Amount), confirmed)
	fmt.Fprintf(tw, "Upcoming\t%d sessions\n", len(dash.Upcoming()))
	fmt.Fprintf(tw, "Pending\t%d requests\n", len(dash.Pending()))
	for _, tx := range dash.Recent() {
		fmt.Fprintf(tw, "\t%s  %s  %s\n", tx.CreatedAt, tx.Type, views.Credits(tx.Amount))
	}
	return tw.Flush()
}

func users(ctx context.Context, env *app.Env, w io.Writer) error {
	list, err := env.Client.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tBALANCE\tACTIVE\tVERIFIED")
	for _, u := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\t%t\n", u.ID, u.Email, u.FullName, views.Credits(u.CreditBalance), u.IsActive, u.IsVerified)
	}
	return tw.Flush()
}
