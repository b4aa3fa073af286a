package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/echo/internal/client/client"
	"github.com/dmitrijs2005/echo/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) readCredentials() (string, []byte, error) {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return "", nil, err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return "", nil, err
	}
	return userName, password, nil
}

func (a *App) printSession(s client.Session) {
	fmt.Fprintf(a.out, "Access token expires at %s\n", s.AccessTokenExpiresAt.Local().Format(time.RFC1123))
	fmt.Fprintf(a.out, "Refresh token expires at %s\n", s.RefreshTokenExpiresAt.Local().Format(time.RFC1123))
}

// Register prompts for a username and password and creates an account. The
// new account is logged in straight away.
func (a *App) Register(ctx context.Context) error {
	userName, password, err := a.readCredentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	ctx, cancel := a.requestCtx(ctx)
	defer cancel()

	s, err := a.client.Register(ctx, userName, string(password))
	if err != nil {
		return err
	}

	a.userName = userName
	fmt.Fprintf(a.out, "Registered as %s\n", userName)
	a.printSession(s)
	return nil
}

// Login prompts for credentials and opens a new session.
func (a *App) Login(ctx context.Context) error {
	userName, password, err := a.readCredentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	ctx, cancel := a.requestCtx(ctx)
	defer cancel()

	s, err := a.client.Login(ctx, userName, string(password))
	if err != nil {
		return err
	}

	a.userName = userName
	fmt.Fprintf(a.out, "Logged in as %s\n", userName)
	a.printSession(s)
	return nil
}

// Refresh rotates the current refresh token.
func (a *App) Refresh(ctx context.Context) error {
	ctx, cancel := a.requestCtx(ctx)
	defer cancel()

	s, err := a.client.Refresh(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Tokens refreshed")
	a.printSession(s)
	return nil
}

// Logout revokes the current refresh token and forgets the session.
func (a *App) Logout(ctx context.Context) error {
	ctx, cancel := a.requestCtx(ctx)
	defer cancel()

	revoked, err := a.client.Logout(ctx)
	if err != nil {
		return err
	}

	a.userName = ""
	if revoked {
		fmt.Fprintln(a.out, "Logged out")
	} else {
		fmt.Fprintln(a.out, "Logged out (session had already ended)")
	}
	return nil
}

// Me prints the profile of the logged-in user.
func (a *App) Me(ctx context.Context) error {
	ctx, cancel := a.requestCtx(ctx)
	defer cancel()

	me, err := a.client.Me(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "ID:       %s\n", me.ID)
	fmt.Fprintf(a.out, "Username: %s\n", me.Username)
	fmt.Fprintf(a.out, "Active:   %t\n", me.IsActive)
	fmt.Fprintf(a.out, "Created:  %s\n", me.CreatedAt.Local().Format(time.RFC1123))
	return nil
}

// Ping checks that the server answers and updates the connectivity mode.
func (a *App) Ping(ctx context.Context) error {
	ctx, cancel := a.requestCtx(ctx)
	defer cancel()

	if err := a.client.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return err
	}

	a.setMode(ModeOnline)
	fmt.Fprintln(a.out, "Server is reachable")
	return nil
}
