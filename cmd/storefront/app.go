package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"storefront/internal/apiclient"
	"storefront/internal/auth"
	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/guestcart"
	"storefront/internal/kvstore"
	"storefront/internal/model"
	"storefront/internal/preferences"
	"storefront/internal/pricing"
	"storefront/internal/settings"

	"github.com/rs/zerolog"
)

const usage = `usage: storefront <command> [arguments]

commands:
  cart                          show the cart with prices and totals
  add [-qty N] <productId>      add a product to the cart
  update <itemId> <quantity>    change the quantity of a cart line
  remove <itemId>               remove a cart line
  clear                         empty the cart
  login -email E -password P    sign in
  register -name N -email E -password P
  logout                        sign out
  whoami                        show the signed-in user
  checkout -name N -phone P -address A -city C [-notes T]
  lang [en|fr]                  show or set the interface language`

var errUsage = errors.New(usage)

// userError replaces err with the message a shopper should see.
func userError(err error, fallback string) error {
	return errors.New(apiclient.ErrorMessage(err, fallback))
}

// app wires the client components for one command invocation.
type app struct {
	out    io.Writer
	logger zerolog.Logger

	session  *auth.Session
	cart     *cart.Reconciler
	settings *settings.Provider
	checkout *checkout.Service
	prefs    *preferences.Preferences
}

func newApp(baseURL string, timeout time.Duration, store kvstore.Store, out io.Writer, logger zerolog.Logger) (*app, error) {
	client, err := apiclient.NewClient(baseURL, timeout, logger)
	if err != nil {
		return nil, err
	}

	session := auth.NewSession(client, store, logger)
	ledger := guestcart.NewLedger(store, logger)
	reconciler := cart.NewReconciler(
		session,
		cart.NewServerBackedCart(session, logger),
		cart.NewLocalLedgerCart(ledger, apiclient.NewCatalog(client), logger),
		logger,
	)

	return &app{
		out:      out,
		logger:   logger,
		session:  session,
		cart:     reconciler,
		settings: settings.NewProvider(client, logger),
		checkout: checkout.NewService(session, client, reconciler, logger),
		prefs:    preferences.New(store, logger),
	}, nil
}

func (a *app) execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	if err := a.session.Restore(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("failed to restore session")
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "cart":
		return a.showCart(ctx)
	case "add":
		return a.add(ctx, rest)
	case "update":
		return a.update(ctx, rest)
	case "remove":
		return a.remove(ctx, rest)
	case "clear":
		if err := a.cart.Clear(ctx); err != nil {
			return userError(err, "Could not clear cart")
		}
		return a.printCart(ctx)
	case "login":
		return a.login(ctx, rest)
	case "register":
		return a.register(ctx, rest)
	case "logout":
		if err := a.session.Logout(ctx); err != nil {
			return userError(err, "Logout failed")
		}
		fmt.Fprintln(a.out, "Signed out")
		return nil
	case "whoami":
		return a.whoami()
	case "checkout":
		return a.placeOrder(ctx, rest)
	case "lang":
		return a.language(ctx, rest)
	}
	return errUsage
}

func (a *app) showCart(ctx context.Context) error {
	if err := a.cart.Refresh(ctx); err != nil {
		return userError(err, "Could not load cart")
	}
	return a.printCart(ctx)
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	qty := fs.Int("qty", 1, "quantity to add")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return errUsage
	}

	if err := a.cart.AddItem(ctx, fs.Arg(0), *qty); err != nil {
		return userError(err, "Could not add to cart")
	}
	return a.printCart(ctx)
}

func (a *app) update(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid quantity %q", args[1])
	}

	if err := a.cart.UpdateItemQuantity(ctx, args[0], qty); err != nil {
		return userError(err, "Could not update cart")
	}
	return a.printCart(ctx)
}

func (a *app) remove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	if err := a.cart.RemoveItem(ctx, args[0]); err != nil {
		return userError(err, "Could not remove item")
	}
	return a.printCart(ctx)
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil || *email == "" || *password == "" {
		return errUsage
	}

	user, err := a.session.Login(ctx, model.Credentials{Email: *email, Password: *password})
	if err != nil {
		return userError(err, "Login failed")
	}
	fmt.Fprintf(a.out, "Signed in as %s <%s>\n", user.Name, user.Email)
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil || *name == "" || *email == "" || *password == "" {
		return errUsage
	}

	user, err := a.session.Register(ctx, model.Registration{Name: *name, Email: *email, Password: *password})
	if err != nil {
		return userError(err, "Registration failed")
	}
	fmt.Fprintf(a.out, "Signed in as %s <%s>\n", user.Name, user.Email)
	return nil
}

func (a *app) whoami() error {
	user := a.session.User()
	if user == nil {
		fmt.Fprintln(a.out, "Not signed in")
		return nil
	}
	fmt.Fprintf(a.out, "%s <%s> (%s)\n", user.Name, user.Email, user.Role)
	if claims := a.session.Claims(); claims != nil && claims.ExpiresAt != nil {
		fmt.Fprintf(a.out, "Token expires %s\n", claims.ExpiresAt.Time.Format(time.RFC3339))
	}
	return nil
}

func (a *app) placeOrder(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var info model.ShippingInfo
	fs.StringVar(&info.FullName, "name", "", "full name")
	fs.StringVar(&info.Phone, "phone", "", "phone number")
	fs.StringVar(&info.AddressLine1, "address", "", "street address")
	fs.StringVar(&info.City, "city", "", "city")
	fs.StringVar(&info.Notes, "notes", "", "delivery notes")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if err := a.cart.Refresh(ctx); err != nil {
		return userError(err, "Could not load cart")
	}

	orderID, err := a.checkout.Checkout(ctx, info)
	if err != nil {
		return userError(err, "Checkout failed")
	}
	fmt.Fprintf(a.out, "Order %s placed\n", orderID)
	return nil
}

func (a *app) language(ctx context.Context, args []string) error {
	switch len(args) {
	case 0:
		fmt.Fprintln(a.out, a.prefs.Language(ctx))
		return nil
	case 1:
		lang, err := a.prefs.SetLanguage(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, lang)
		return nil
	}
	return errUsage
}

// printCart renders the current view with the site settings applied.
// Settings are optional: without them no site discount or shipping is shown.
func (a *app) printCart(ctx context.Context) error {
	if err := a.settings.Refresh(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("pricing without site settings")
	}

	view := a.cart.Cart()
	if view == nil || len(view.Items) == 0 {
		fmt.Fprintln(a.out, "Cart is empty")
		return nil
	}

	if view.IsGuest() {
		fmt.Fprintln(a.out, "Guest cart (sign in to keep it on your account)")
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tPRODUCT\tQTY\tUNIT\tLINE")
	for _, item := range view.Items {
		quote := pricing.QuoteProduct(item.Product)
		unit := pricing.FormatMoney(quote.Price, pricing.DefaultCurrency)
		if quote.HasDiscount {
			unit = fmt.Sprintf("%s (-%s%%, was %s)", unit,
				strconv.FormatFloat(quote.DiscountPercentage, 'f', -1, 64),
				pricing.FormatMoney(quote.OriginalPrice, pricing.DefaultCurrency))
		}
		line := pricing.FormatMoney(quote.Price*int64(item.Quantity), pricing.DefaultCurrency)
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", item.ID, item.Product.Name, item.Quantity, unit, line)
	}

	summary := a.cart.Summary(a.settings.Current())
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "Items\t%d\n", summary.ItemsCount)
	fmt.Fprintf(tw, "Subtotal\t%s\n", pricing.FormatMoney(summary.SubtotalCents, pricing.DefaultCurrency))
	if summary.DiscountCents > 0 {
		fmt.Fprintf(tw, "Discount\t-%s\n", pricing.FormatMoney(summary.DiscountCents, pricing.DefaultCurrency))
	}
	fmt.Fprintf(tw, "Shipping\t%s\n", pricing.FormatMoney(summary.ShippingCents, pricing.DefaultCurrency))
	fmt.Fprintf(tw, "Total\t%s\n", pricing.FormatMoney(summary.TotalCents, pricing.DefaultCurrency))
	return tw.Flush()
}
