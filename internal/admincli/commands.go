package admincli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/dmitrijs2005/dovol/internal/common"
	"github.com/dmitrijs2005/dovol/internal/server/models"
)

const defaultListLimit = 50

const timeLayout = "2006-01-02 15:04:05"

func listLimit(args []string) (int, error) {
	if len(args) == 0 {
		return defaultListLimit, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("limit must be a positive number, got %q", args[0])
	}
	return n, nil
}

// CreateAdmin prompts for account details and creates an admin.
func (a *App) CreateAdmin(ctx context.Context) error {
	name, err := GetSimpleText(a.reader, "Full name", a.out)
	if err != nil {
		return err
	}
	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	location, err := GetSimpleText(a.reader, "Location (optional)", a.out)
	if err != nil {
		return err
	}

	pw, err := GetPassword("Password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)
	again, err := GetPassword("Repeat password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(again)
	if string(pw) != string(again) {
		return errors.New("passwords do not match")
	}

	u, err := a.admins.CreateAdmin(ctx, email, name, string(pw), location)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Admin %s created (id %s)\n", u.Email, u.ID)
	return nil
}

func (a *App) ListOTPs(ctx context.Context, args []string) error {
	limit, err := listLimit(args)
	if err != nil {
		return err
	}
	list, err := a.otps.List(ctx, limit)
	if err != nil {
		return err
	}
	a.printOTPs(list, true)
	return nil
}

func (a *App) ListActive(ctx context.Context, args []string) error {
	limit, err := listLimit(args)
	if err != nil {
		return err
	}
	list, err := a.otps.ListActive(ctx, limit)
	if err != nil {
		return err
	}
	a.printOTPs(list, false)
	return nil
}

func (a *App) Find(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: find <email>")
	}
	list, err := a.otps.FindByEmail(ctx, args[0], defaultListLimit)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintf(a.out, "No codes found for %s\n", args[0])
		return nil
	}
	a.printOTPs(list, false)
	return nil
}

func (a *App) Stats(ctx context.Context) error {
	st, err := a.otps.Stats(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Total\t%d\n", st.Total)
	fmt.Fprintf(tw, "Used\t%d\n", st.Used)
	fmt.Fprintf(tw, "Unused\t%d\n", st.Unused)
	fmt.Fprintf(tw, "Verified\t%d\n", st.Verified)
	fmt.Fprintf(tw, "Expired\t%d\n", st.Expired)
	fmt.Fprintf(tw, "Active\t%d\n", st.Active)
	return tw.Flush()
}

func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: delete <id>")
	}
	if err := a.otps.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %s\n", args[0])
	return nil
}

func (a *App) PurgeExpired(ctx context.Context) error {
	if !Confirm(a.reader, "Delete expired codes? (y/n)", "y", a.out) {
		fmt.Fprintln(a.out, "Cancelled")
		return nil
	}
	n, err := a.otps.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %d expired code(s)\n", n)
	return nil
}

func (a *App) PurgeAll(ctx context.Context) error {
	if !Confirm(a.reader, "Delete ALL codes? This cannot be undone (yes/no)", "yes", a.out) {
		fmt.Fprintln(a.out, "Cancelled")
		return nil
	}
	n, err := a.otps.PurgeAll(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %d code(s)\n", n)
	return nil
}

func (a *App) printOTPs(list []*models.OTP, withUsed bool) {
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No codes found")
		return
	}
	now := a.clock.Now()

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	if withUsed {
		fmt.Fprintln(tw, "ID\tEMAIL\tPURPOSE\tCODE\tVERIFIED\tUSED\tEXPIRED\tCREATED")
	} else {
		fmt.Fprintln(tw, "ID\tEMAIL\tPURPOSE\tCODE\tVERIFIED\tEXPIRES")
	}
	for _, o := range list {
		if withUsed {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%t\t%t\t%s\n",
				o.ID, o.Email, o.Purpose, o.Code, o.Verified, o.Used, o.Expired(now), o.CreatedAt.Format(timeLayout))
		} else {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n",
				o.ID, o.Email, o.Purpose, o.Code, o.Verified, o.ExpiresAt.Format(timeLayout))
		}
	}
	_ = tw.Flush()
	fmt.Fprintf(a.out, "Total: %d\n", len(list))
}
