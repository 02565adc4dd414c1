package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime/debug"
	"text/tabwriter"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chamapesa/go-chama-client/authapi"
	"github.com/chamapesa/go-chama-client/chama"
	"github.com/chamapesa/go-chama-client/credentials"
	"github.com/chamapesa/go-chama-client/guard"
	"github.com/chamapesa/go-chama-client/internal/config"
	"github.com/chamapesa/go-chama-client/internal/utils"
	"github.com/chamapesa/go-chama-client/session"
	"github.com/chamapesa/go-chama-client/transport"
	"github.com/chamapesa/go-chama-client/users"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("chamactl failed")
	}
}

// app bundles the wired client stack for command handlers.
type app struct {
	config    config.Config
	api       *authapi.Client
	manager   *session.Manager
	resources *chama.Client
}

func run(args []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	if os.Getenv("ENV") != "PROD" {
		if err := godotenv.Load(); err != nil {
			log.Debug().Msg("no .env file found, continuing")
		}
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	c := config.New()

	if len(args) == 0 || args[0] == "help" {
		displayAppname(c.GetAppName())
		usage()
		return nil
	}

	store, err := credentials.NewFileStore(c.GetCredentialsDir())
	if err != nil {
		return errors.Wrap(err, "[run] NewFileStore")
	}

	api, err := authapi.NewClient(c.GetAPIBaseURL())
	if err != nil {
		return errors.Wrap(err, "[run] authapi.NewClient")
	}

	manager, err := session.NewManager(store, api,
		session.WithRefreshTimeout(c.GetRefreshTimeout()),
		session.WithExpiredHandler(func(reason session.Reason) {
			fmt.Fprintln(os.Stderr, "Your session has expired. Please sign in again with `chamactl login`.")
		}),
	)
	if err != nil {
		return errors.Wrap(err, "[run] session.NewManager")
	}
	if err := manager.Hydrate(); err != nil {
		return errors.Wrap(err, "[run] Hydrate")
	}

	httpClient := transport.NewHTTPClient(manager, c.GetRequestTimeout())
	resources, err := chama.NewClient(c.GetAPIBaseURL(), httpClient)
	if err != nil {
		return errors.Wrap(err, "[run] chama.NewClient")
	}

	application := &app{config: c, api: api, manager: manager, resources: resources}
	return application.dispatch(args[0], args[1:])
}

func (a *app) dispatch(command string, args []string) error {
	ctx := context.Background()
	switch command {
	case "login":
		return a.login(ctx, args)
	case "register":
		return a.register(ctx, args)
	case "logout":
		return a.logout(ctx)
	case "whoami":
		return a.whoami(ctx, args)
	case "profile":
		return a.profile(ctx, args)
	case "groups":
		return a.groups(ctx)
	case "contributions":
		return a.contributions(ctx, args)
	case "loans":
		return a.loans(ctx)
	case "investments":
		return a.investments(ctx)
	case "members":
		return a.members(ctx)
	}
	usage()
	return errors.New("unknown command " + command)
}

func (a *app) login(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("login", flag.ContinueOnError)
	username := flags.String("username", "", "account username")
	password := flags.String("password", "", "account password")
	if err := flags.Parse(args); err != nil {
		return err
	}

	user, err := a.manager.Login(ctx, authapi.LoginRequest{Username: *username, Password: *password})
	if err != nil {
		if errors.Is(err, authapi.InvalidCredentialsErr) {
			return errors.New("invalid username or password")
		}
		return errors.Wrap(err, "[login]")
	}

	fmt.Printf("Signed in as %s (%s)\n", user.Username, user.Role)
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("register", flag.ContinueOnError)
	username := flags.String("username", "", "desired username")
	email := flags.String("email", "", "email address")
	password := flags.String("password", "", "password")
	phone := flags.String("phone", "", "phone number (optional)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	user, err := a.manager.Register(ctx, authapi.RegisterRequest{
		Username:    *username,
		Email:       *email,
		Password:    *password,
		PhoneNumber: *phone,
	})
	if err != nil {
		return errors.Wrap(err, "[register]")
	}

	fmt.Printf("Welcome %s, your account is ready and you are signed in.\n", user.Username)
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if err := a.manager.Logout(ctx); err != nil {
		return errors.Wrap(err, "[logout]")
	}
	fmt.Println("Signed out.")
	return nil
}

func (a *app) whoami(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("whoami", flag.ContinueOnError)
	remote := flags.Bool("remote", false, "revalidate the profile against the server")
	if err := flags.Parse(args); err != nil {
		return err
	}

	user := a.manager.CurrentUser()
	if user == nil {
		fmt.Println("Not signed in.")
		return nil
	}

	if *remote {
		fresh, err := a.api.Me(ctx, a.manager.AccessToken())
		if err != nil {
			return errors.Wrap(err, "[whoami]")
		}
		if err := a.manager.UpdateProfile(fresh); err != nil {
			return errors.Wrap(err, "[whoami] update profile")
		}
		user = fresh
	}

	fmt.Printf("%s <%s> role=%s\n", user.Username, user.Email, user.Role)
	if user.Group != nil {
		fmt.Printf("group: %s (#%d)\n", user.Group.Name, user.Group.ID)
	}
	if expiry, err := authapi.TokenExpiry(a.manager.AccessToken()); err == nil {
		fmt.Printf("access token expires %s\n", expiry.Format(time.RFC1123))
	}
	return nil
}

func (a *app) profile(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("profile", flag.ContinueOnError)
	email := flags.String("email", "", "new email address")
	phone := flags.String("phone", "", "new phone number")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := a.gate("/profile"); err != nil {
		return err
	}

	req := chama.UpdateProfileRequest{}
	if *email != "" {
		req.Email = utils.Ptr(*email)
	}
	if *phone != "" {
		req.PhoneNumber = utils.Ptr(*phone)
	}

	user, err := a.resources.Users.UpdateProfile(ctx, req)
	if err != nil {
		return errors.Wrap(err, "[profile]")
	}
	if err := a.manager.UpdateProfile(user); err != nil {
		return errors.Wrap(err, "[profile] update session")
	}

	fmt.Printf("Profile updated: %s <%s> %s\n", user.Username, user.Email, user.PhoneNumber)
	return nil
}

func (a *app) groups(ctx context.Context) error {
	if err := a.gate("/groups"); err != nil {
		return err
	}

	groups, err := a.resources.Groups.List(ctx)
	if err != nil {
		return errors.Wrap(err, "[groups]")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tTARGET\tCURRENT")
	for _, g := range groups {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%.2f\n", g.ID, g.Name, g.Status, g.TargetAmount, g.CurrentAmount)
	}
	return w.Flush()
}

func (a *app) contributions(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("contributions", flag.ContinueOnError)
	groupID := flags.Int64("group", 0, "group id")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := a.gate("/contributions"); err != nil {
		return err
	}

	contributions, err := a.resources.Contributions.ListByGroup(ctx, *groupID)
	if err != nil {
		return errors.Wrap(err, "[contributions]")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMEMBER\tAMOUNT\tSTATUS\tRECEIPT")
	for _, c := range contributions {
		fmt.Fprintf(w, "%d\t%s\t%.2f\t%s\t%s\n", c.ID, c.MemberName, c.Amount, c.Status, c.ReceiptNumber)
	}
	return w.Flush()
}

func (a *app) loans(ctx context.Context) error {
	if err := a.gate("/loans"); err != nil {
		return err
	}

	loans, err := a.resources.Loans.List(ctx)
	if err != nil {
		return errors.Wrap(err, "[loans]")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMEMBER\tGROUP\tAMOUNT\tINTEREST\tSTATUS\tDUE")
	for _, l := range loans {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%.2f\t%s\t%s\n",
			l.ID, l.MemberName, l.GroupName, l.Amount, l.Interest, l.Status, l.DueDate.Format("2006-01-02"))
	}
	return w.Flush()
}

func (a *app) investments(ctx context.Context) error {
	if err := a.gate("/investments"); err != nil {
		return err
	}

	investments, err := a.resources.Investments.List(ctx)
	if err != nil {
		return errors.Wrap(err, "[investments]")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tAMOUNT\tRETURNS")
	for _, inv := range investments {
		fmt.Fprintf(w, "%d\t%s\t%.2f\t%.2f\n", inv.ID, inv.Name, inv.Amount, inv.Returns)
	}
	return w.Flush()
}

func (a *app) members(ctx context.Context) error {
	if err := a.gate("/members", users.RoleAdmin, users.RoleSuperAdmin); err != nil {
		return err
	}

	members, err := a.resources.Users.List(ctx)
	if err != nil {
		return errors.Wrap(err, "[members]")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tROLE")
	for _, m := range members {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", m.ID, m.Username, m.Email, m.Role)
	}
	return w.Flush()
}

// gate applies the same role gating the dashboard's protected routes use.
func (a *app) gate(location string, roles ...users.Role) error {
	outcome := guard.Check(a.manager, location, roles...)
	switch outcome.Decision {
	case guard.RedirectLogin:
		return errors.New("not signed in, run `chamactl login` first (wanted " + outcome.ReturnTo + ")")
	case guard.RedirectUnauthorized:
		return errors.New("your role does not allow " + location)
	}
	return nil
}

func usage() {
	fmt.Println(`usage: chamactl <command> [flags]

commands:
  login -username <u> -password <p>   sign in
  register -username -email -password register and sign in
  logout                              sign out (local even when offline)
  whoami [-remote]                    show the current session
  profile -email <e> -phone <p>       update the signed-in profile
  groups                              list savings groups
  contributions -group <id>           list a group's contributions
  loans                               list loans
  investments                         list investments
  members                             list platform members (admin)`)
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
