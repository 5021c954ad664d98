package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/emilianosoriano/Grocery-Expiration-Tracker/internal/backend/identity"
	"github.com/emilianosoriano/Grocery-Expiration-Tracker/internal/models"
	"github.com/emilianosoriano/Grocery-Expiration-Tracker/internal/service"
	"github.com/emilianosoriano/Grocery-Expiration-Tracker/internal/store"
)

// app is the terminal shell over the store contracts. It owns no state
// of its own beyond the active list filter; everything it shows comes
// from store snapshots.
type app struct {
	identity   identity.Provider
	session    *store.SessionStore
	onboarding *store.OnboardingStore
	settings   *store.SettingsStore
	groceries  *store.GroceryStore
	photos     *service.PhotoService

	in  io.Reader
	out io.Writer

	reader *bufio.Reader
	filter store.ListFilter
	search string
}

func (a *app) run(ctx context.Context) error {
	a.reader = bufio.NewReader(a.in)
	a.filter = store.FilterExpiring

	a.waitResolved()

	for {
		if ctx.Err() != nil {
			return nil
		}

		// Navigation guard: auth -> onboarding -> main.
		user, _ := a.session.Snapshot()
		if user == nil {
			quit, err := a.authScreen(ctx)
			if quit || err != nil {
				return err
			}
			continue
		}

		completed, _ := a.onboarding.Snapshot()
		if !completed {
			if err := a.onboardingScreen(); err != nil {
				return err
			}
			continue
		}

		quit, err := a.mainScreen(ctx)
		if quit || err != nil {
			return err
		}
	}
}

// waitResolved blocks until the session and onboarding stores have
// finished their initial resolution.
func (a *app) waitResolved() {
	changed := make(chan struct{}, 1)
	signal := func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}
	cancelSession := a.session.Subscribe(signal)
	defer cancelSession()
	cancelOnboarding := a.onboarding.Subscribe(signal)
	defer cancelOnboarding()

	for {
		_, sessionResolving := a.session.Snapshot()
		_, onboardingResolving := a.onboarding.Snapshot()
		if !sessionResolving && !onboardingResolving {
			return
		}
		<-changed
	}
}

func (a *app) authScreen(ctx context.Context) (quit bool, err error) {
	fmt.Fprintln(a.out, "\n== Grocery Expiration Tracker ==")
	fmt.Fprintln(a.out, "1) sign in  2) sign up  q) quit")

	switch a.prompt("> ") {
	case "1":
		email := a.prompt("email: ")
		password := a.prompt("password: ")
		if _, serr := a.identity.SignIn(ctx, email, password); serr != nil {
			fmt.Fprintf(a.out, "sign in failed: %v\n", serr)
		}
	case "2":
		email := a.prompt("email: ")
		password := a.prompt("password: ")
		if _, serr := a.identity.SignUp(ctx, email, password); serr != nil {
			fmt.Fprintf(a.out, "sign up failed: %v\n", serr)
		}
	case "q":
		return true, nil
	}
	return false, nil
}

func (a *app) onboardingScreen() error {
	fmt.Fprintln(a.out, "\nWelcome! Track your groceries and never let food expire unnoticed.")
	fmt.Fprintln(a.out, "Press enter to get started.")
	a.prompt("")
	return a.onboarding.MarkCompleted()
}

func (a *app) mainScreen(ctx context.Context) (quit bool, err error) {
	a.printList()
	fmt.Fprintln(a.out, "\ncommands: a)dd  d)elete <n>  s)earch <term>  f)ilter <category|expiring>  p)references  o)ut  q)uit")

	line := a.prompt("> ")
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "a":
		a.addItem(ctx)
	case "d":
		a.deleteItem(ctx, arg)
	case "s":
		a.search = arg
	case "f":
		a.search = ""
		if arg == "" || arg == string(store.FilterExpiring) {
			a.filter = store.FilterExpiring
		} else if models.Category(arg).IsValid() {
			a.filter = store.CategoryFilter(models.Category(arg))
		} else {
			fmt.Fprintf(a.out, "unknown category %q\n", arg)
		}
	case "p":
		a.settingsScreen(ctx)
	case "o":
		if serr := a.identity.SignOut(ctx); serr != nil {
			fmt.Fprintf(a.out, "sign out failed: %v\n", serr)
		}
	case "q":
		return true, nil
	}
	return false, nil
}

func (a *app) printList() {
	items, loading := a.groceries.Snapshot()
	if loading {
		fmt.Fprintln(a.out, "\nloading…")
		return
	}

	visible := store.FilterItems(items, a.search, a.filter, timeNow())
	if a.search != "" {
		fmt.Fprintf(a.out, "\nsearch %q — %d of %d items\n", a.search, len(visible), len(items))
	} else if a.filter == store.FilterExpiring {
		fmt.Fprintf(a.out, "\nexpiring soon — %d of %d items\n", len(visible), len(items))
	} else {
		info := models.CategoryByID(models.Category(a.filter))
		fmt.Fprintf(a.out, "\n%s %s — %d of %d items\n", info.Emoji, info.Label, len(visible), len(items))
	}

	for i, item := range visible {
		days := store.DaysUntilExpiration(item.ExpirationDate, timeNow())
		marker := " "
		switch store.UrgencyFor(days) {
		case store.UrgencyDanger:
			marker = "!"
		case store.UrgencyWarning:
			marker = "~"
		}
		fmt.Fprintf(a.out, "%2d. %s %-24s %-20s %s\n",
			i+1, marker, item.Name, item.Category, store.FormatDaysRemaining(days))
	}
}

func (a *app) addItem(ctx context.Context) {
	name := a.prompt("name: ")
	fmt.Fprintln(a.out, "categories:")
	for _, c := range models.Categories {
		fmt.Fprintf(a.out, "  %s %s (%s)\n", c.Emoji, c.Label, c.ID)
	}
	category := a.prompt("category: ")
	purchase := a.prompt("purchase date (YYYY-MM-DD): ")
	expiration := a.prompt("expiration date (YYYY-MM-DD, empty = +7 days): ")
	photoPath := a.prompt("photo file (optional): ")

	photoURL := ""
	if photoPath != "" {
		url, err := a.photos.UploadPhotoFromFile(ctx, photoPath)
		if err != nil {
			fmt.Fprintf(a.out, "photo upload failed, continuing without photo: %v\n", err)
		} else {
			photoURL = url
		}
	}

	input := store.GroceryInput{
		Name:           name,
		Category:       models.Category(category),
		PurchaseDate:   purchase,
		ExpirationDate: expiration,
		PhotoURL:       photoURL,
	}

	// Matches the add-item flow: fire the write and move on; a failure
	// surfaces after the fact rather than blocking the screen.
	go func() {
		if err := a.groceries.AddGrocery(context.Background(), input); err != nil {
			fmt.Fprintf(a.out, "\nadding %q failed: %v\n", name, err)
		}
	}()
}

func (a *app) deleteItem(ctx context.Context, arg string) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		fmt.Fprintln(a.out, "usage: d <item number>")
		return
	}
	items, _ := a.groceries.Snapshot()
	visible := store.FilterItems(items, a.search, a.filter, timeNow())
	if n < 1 || n > len(visible) {
		fmt.Fprintln(a.out, "no such item")
		return
	}
	if err := a.groceries.DeleteGrocery(ctx, visible[n-1].ID); err != nil {
		fmt.Fprintf(a.out, "delete failed: %v\n", err)
	}
}

func (a *app) settingsScreen(ctx context.Context) {
	settings, loading := a.settings.Snapshot()
	if loading || settings == nil {
		fmt.Fprintln(a.out, "settings not loaded yet")
		return
	}

	fmt.Fprintf(a.out, "\nauto-delete expired: %v (delete after %d days)\n",
		settings.AutoDeleteExpired, settings.DeleteAfterDays)
	fmt.Fprintf(a.out, "expiring reminders:  %v\n", settings.ExpiringReminders)
	fmt.Fprintln(a.out, "1) toggle auto-delete  2) set days  3) toggle reminders  enter) back")

	switch a.prompt("> ") {
	case "1":
		value := !settings.AutoDeleteExpired
		a.applySettings(ctx, store.SettingsUpdate{AutoDeleteExpired: &value})
	case "2":
		fmt.Fprintf(a.out, "options: %v\n", models.DeleteAfterDayOptions)
		n, err := strconv.Atoi(a.prompt("days: "))
		if err != nil {
			fmt.Fprintln(a.out, "not a number")
			return
		}
		a.applySettings(ctx, store.SettingsUpdate{DeleteAfterDays: &n})
	case "3":
		value := !settings.ExpiringReminders
		a.applySettings(ctx, store.SettingsUpdate{ExpiringReminders: &value})
	}
}

func (a *app) applySettings(ctx context.Context, update store.SettingsUpdate) {
	if err := a.settings.UpdateSettings(ctx, update); err != nil {
		fmt.Fprintf(a.out, "saving settings failed: %v\n", err)
	}
}

func timeNow() time.Time { return time.Now() }

func (a *app) prompt(label string) string {
	fmt.Fprint(a.out, label)
	line, _ := a.reader.ReadString('\n')
	return strings.TrimSpace(line)
}
