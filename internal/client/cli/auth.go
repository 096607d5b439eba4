package cli

import (
	"context"
	"fmt"
	"time"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for a username, email and password and creates an
// account. Failures are reported through the session subscription; the
// error is returned for the caller's benefit only.
func (a *App) Register(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer wipe(password)

	_, err = a.session.Register(ctx, username, email, string(password))
	return err
}

// Login prompts for credentials and signs in.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer wipe(password)

	_, err = a.session.Login(ctx, email, string(password))
	return err
}

// Logout signs out. It cannot fail.
func (a *App) Logout(ctx context.Context) error {
	a.session.Logout(ctx)
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	st := a.session.State()
	if st.User == nil {
		fmt.Fprintln(a.out, "Not signed in")
		return nil
	}
	u := st.User
	fmt.Fprintf(a.out, "id:       %d\nusername: %s\nemail:    %s\n", u.ID, u.Username, u.Email)
	if !u.CreatedAt.IsZero() {
		fmt.Fprintf(a.out, "created:  %s\n", u.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func (a *App) Status(ctx context.Context) error {
	st := a.session.State()
	fmt.Fprintf(a.out, "status: %s\n", st.Status)
	if !st.AccessExpiresAt.IsZero() {
		fmt.Fprintf(a.out, "access expires: %s (in %s)\n",
			st.AccessExpiresAt.Local().Format(time.RFC3339),
			time.Until(st.AccessExpiresAt).Round(time.Second))
	}
	if st.Error != "" {
		fmt.Fprintf(a.out, "last error: %s\n", st.Error)
	}
	return nil
}

// ClearError dismisses the last error message.
func (a *App) ClearError(ctx context.Context) error {
	a.session.ClearError()
	return nil
}
