package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/zktaccess/zktadmin/internal/client/models"
	"github.com/zktaccess/zktadmin/internal/client/services"
)

// Users fetches and lists all accounts. The cached list is replaced only
// after a successful fetch.
func (a *App) Users(ctx context.Context) error {
	if err := a.loadUsers(ctx); err != nil {
		return err
	}
	a.printUsers()
	return nil
}

func (a *App) printUsers() {
	if len(a.users) == 0 {
		a.println("No users.")
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "USERNAME\tROLE\tSTATUS")
	for _, u := range a.users {
		status := "active"
		if !u.Active {
			status = "disabled"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", u.Username, u.Role, status)
	}
	_ = tw.Flush()
}

// AddUser prompts for a new account and creates it.
func (a *App) AddUser(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "New username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out, "Password for "+username)
	if err != nil {
		return err
	}
	defer wipe(password)
	role, err := getSimpleText(a.reader, "Role (user/admin) [user]", a.out)
	if err != nil {
		return err
	}

	res, err := a.admin.Create(ctx, username, string(password), role)
	if err != nil {
		return err
	}
	a.println("User created.")
	a.warn(res.Warning)
	return a.Users(ctx)
}

// Toggle enables a disabled account or disables an active one.
func (a *App) Toggle(ctx context.Context, username string) error {
	u, err := a.lookup(ctx, username)
	if err != nil {
		return err
	}
	res, err := a.admin.ToggleActive(ctx, u)
	if err != nil {
		return err
	}
	if u.Active {
		a.printf("Disabled user %s\n", u.Username)
	} else {
		a.printf("Enabled user %s\n", u.Username)
	}
	a.warn(res.Warning)
	return a.Users(ctx)
}

// ResetPassword sets a new password for username.
func (a *App) ResetPassword(ctx context.Context, username string) error {
	u, err := a.lookup(ctx, username)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out, "New password for "+u.Username)
	if err != nil {
		return err
	}
	defer wipe(password)

	res, err := a.admin.ResetPassword(ctx, u, string(password))
	if err != nil {
		return err
	}
	a.printf("Password reset for %s\n", u.Username)
	a.warn(res.Warning)
	return nil
}

// ResetLimit resets today's PIN generation count of username after
// confirmation.
func (a *App) ResetLimit(ctx context.Context, username string) error {
	u, err := a.lookup(ctx, username)
	if err != nil {
		return err
	}
	res, err := a.admin.ResetDailyLimit(ctx, u, a.confirm)
	if err != nil {
		return err
	}
	a.printf("Daily limit reset for %s\n", u.Username)
	a.warn(res.Warning)
	return nil
}

// DeleteUser deletes username after confirmation. The signed-in account and
// the last admin cannot be deleted.
func (a *App) DeleteUser(ctx context.Context, username string) error {
	if a.users == nil {
		if err := a.loadUsers(ctx); err != nil {
			return err
		}
	}
	res, err := a.admin.Delete(ctx, a.users, username, a.confirm)
	if err != nil {
		return err
	}
	a.printf("Deleted user %s\n", username)
	a.warn(res.Warning)
	return a.Users(ctx)
}

// lookup finds username in the cached list, fetching it first if needed.
func (a *App) lookup(ctx context.Context, username string) (models.User, error) {
	if a.users == nil {
		if err := a.loadUsers(ctx); err != nil {
			return models.User{}, err
		}
	}
	u, ok := services.FindUser(a.users, username)
	if !ok {
		return models.User{}, fmt.Errorf("%w: %s", services.ErrUnknownUser, username)
	}
	return u, nil
}

func (a *App) loadUsers(ctx context.Context) error {
	users, err := a.admin.Users(ctx)
	if err != nil {
		return err
	}
	a.users = users
	return nil
}
