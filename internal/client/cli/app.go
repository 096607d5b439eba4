package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/client/services"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

// Session is the part of *services.SessionManager the CLI uses.
type Session interface {
	Initialize(ctx context.Context) services.State
	Login(ctx context.Context, email, password string) (services.State, error)
	Register(ctx context.Context, username, email, password string) (services.State, error)
	Logout(ctx context.Context) services.State
	ClearError() services.State
	State() services.State
	Subscribe(fn func(services.State)) (unsubscribe func())
}

type App struct {
	session Session
	log     logging.Logger
	reader  *bufio.Reader
	out     io.Writer

	lastStatus services.Status
	lastError  string
}

func NewApp(session Session, log logging.Logger) *App {
	return &App{
		session: session,
		log:     log.With("component", "cli"),
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}
}

// Run resolves the session and serves commands until EOF or exit.
func (a *App) Run(ctx context.Context) {
	unsubscribe := a.session.Subscribe(a.onState)
	defer unsubscribe()

	fmt.Fprintln(a.out, "Welcome to authkeeper CLI (type 'help' for commands)")
	a.session.Initialize(ctx)

	runREPL(ctx, a, a.prompt, bufio.NewScanner(a.reader))
}

func (a *App) isLoggedIn() bool {
	return a.session.State().Status == services.StatusAuthenticated
}

// onState reports transitions and new errors as the session publishes them.
func (a *App) onState(st services.State) {
	a.log.Debug(context.Background(), "session state", "status", st.Status, "busy", st.Busy)

	if st.Error != "" && st.Error != a.lastError {
		fmt.Fprintf(a.out, "Error: %s\n", st.Error)
	}
	a.lastError = st.Error

	if st.Busy || st.Status == a.lastStatus {
		return
	}
	a.lastStatus = st.Status

	switch st.Status {
	case services.StatusAuthenticated:
		fmt.Fprintf(a.out, "Signed in as %s <%s>\n", st.User.Username, st.User.Email)
	case services.StatusUnauthenticated:
		fmt.Fprintln(a.out, "Not signed in")
	}
}

func (a *App) prompt() string {
	st := a.session.State()
	switch {
	case st.Busy:
		return "(working)"
	case st.Status == services.StatusAuthenticated:
		return fmt.Sprintf("(%s)", st.User.Username)
	case st.Status == services.StatusLoading:
		return "(loading)"
	default:
		return "(signed out)"
	}
}
