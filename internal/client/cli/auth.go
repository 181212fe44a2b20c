package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/Evermishka/notes-app/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts the user for an email and password and attempts to create
// a new account. On success it prints "Success!" and returns nil. The
// password byte slice is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.authService.Register(ctx, email, string(password)); err != nil {
		printlnFn("Registration failed:", err.Error())
		return err
	}

	printlnFn("Success!")
	return nil
}

// Login prompts the user for credentials and authenticates against the
// server. A successful login also proves connectivity, so the engine is
// flipped online first and the pending queue starts draining right after
// the session is established.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	a.probeOnline(ctx)

	if err := a.authService.Login(ctx, email, string(password)); err != nil {
		printlnFn("Login failed:", err.Error())
		return err
	}

	a.loggedIn = true
	printlnFn(fmt.Sprintf("Logged in as %s", email))
	return nil
}

// Logout drops the session. Local notes and pending changes stay on disk
// and keep syncing after the same account logs back in.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		printlnFn("Logout failed:", err.Error())
		return err
	}
	a.loggedIn = false
	printlnFn("Logged out. Local notes are kept.")
	return nil
}
