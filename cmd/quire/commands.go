package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/spf13/cobra"

	"github.com/five82/quire/internal/api"
	"github.com/five82/quire/internal/app"
	"github.com/five82/quire/internal/config"
	"github.com/five82/quire/internal/library"
	"github.com/five82/quire/internal/logtail"
)

type rootFlags struct {
	configPath string
	verbose    int
}

// logger logs to w through the standard library logger.
func (f *rootFlags) logger(w io.Writer) logr.Logger {
	stdr.SetVerbosity(f.verbose)
	return stdr.New(log.New(w, "quire ", log.LstdFlags))
}

func (f *rootFlags) setup(c *cobra.Command) (*app.Env, error) {
	return app.Setup(app.Options{ConfigPath: f.configPath, Logger: f.logger(c.ErrOrStderr())})
}

func newRootCommand(ctx context.Context, in io.Reader, out, errOut io.Writer) *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "quire",
		Short: "Browse a reader library from the terminal",
		Long: "quire talks to a reader API: it browses folders, feeds and collections,\n" +
			"marks entries read and moves OPML and bookmark files in and out.\n\n" +
			"Environment:\n" + config.EnvUsage(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(c *cobra.Command, _ []string) error {
			return browse(c, flags)
		},
	}
	root.SetContext(ctx)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	root.PersistentFlags().CountVarP(&flags.verbose, "verbose", "v", "log verbosity; -v logs every API call")

	root.AddCommand(
		&cobra.Command{
			Use:   "browse",
			Short: "Open the library browser (default)",
			Args:  cobra.NoArgs,
			RunE:  func(c *cobra.Command, _ []string) error { return browse(c, flags) },
		},
		newRegisterCommand(flags),
		newLoginCommand(flags),
		newLogoutCommand(flags),
		newWhoamiCommand(flags),
		newTreeCommand(flags),
		newDetectCommand(flags),
		newImportCommand(flags),
		newExportCommand(flags),
		newLogsCommand(flags),
	)
	return root
}

// browse runs the TUI. Logs go to quire.log beside the session file since
// the terminal belongs to the UI.
func browse(c *cobra.Command, flags *rootFlags) error {
	logOut := io.Discard
	if flags.verbose > 0 {
		cfg, err := config.Load(flags.configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		path := logtail.Path(cfg.SessionPath)
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("open log: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	return app.Run(c.Context(), app.Options{ConfigPath: flags.configPath, Logger: flags.logger(logOut)})
}

func newRegisterCommand(flags *rootFlags) *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			env, err := flags.setup(c)
			if err != nil {
				return err
			}
			if password == "" {
				if password, err = prompt(c, "Password: "); err != nil {
					return err
				}
			}
			req := api.RegisterRequest{Email: email, Password: password}
			if name != "" {
				req.DisplayName = &name
			}
			user, err := env.Client.Auth.Register(c.Context(), req)
			if err != nil {
				return fmt.Errorf("register: %w", err)
			}
			fmt.Fprintf(c.OutOrStdout(), "Registered %s (%s); run quire login to sign in\n", user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when empty)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLoginCommand(flags *rootFlags) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the token in the session file",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			env, err := flags.setup(c)
			if err != nil {
				return err
			}
			if password == "" {
				if password, err = prompt(c, "Password: "); err != nil {
					return err
				}
			}
			tok, err := env.Client.Auth.Login(c.Context(), api.LoginRequest{Email: email, Password: password})
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}

			sess, err := env.Session.Load()
			if err != nil {
				return fmt.Errorf("load session: %w", err)
			}
			sess.Token, sess.Email, sess.SavedAt = tok.AccessToken, strings.TrimSpace(email), time.Time{}
			if err := env.Session.Save(sess); err != nil {
				return fmt.Errorf("save session: %w", err)
			}

			msg := "Logged in as " + sess.Email
			if exp, ok := sess.ExpiresAt(); ok {
				msg += ", token valid until " + exp.Local().Format(time.DateTime)
			}
			fmt.Fprintln(c.OutOrStdout(), msg)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			env, err := flags.setup(c)
			if err != nil {
				return err
			}
			if err := env.Session.Clear(); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			fmt.Fprintln(c.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the default profile of the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			env, err := flags.setup(c)
			if err != nil {
				return err
			}
			profile, err := env.Client.Profiles.Me(c.Context())
			if err != nil {
				return fmt.Errorf("whoami: %w", err)
			}
			fmt.Fprintf(c.OutOrStdout(), "%s (%s)\n", profile.Title, profile.ID)
			return nil
		},
	}
}

func newTreeCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the whole library",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			env, err := flags.setup(c)
			if err != nil {
				return err
			}
			out := c.OutOrStdout()
			tree := library.New(env.Client.Library, env.Log.WithName("library"))
			return tree.Walk(c.Context(), func(n library.Node) error {
				_, err := fmt.Fprintf(out, "%s%s %s\n", strings.Repeat("  ", n.Depth()), kindLabel(n.Item.Type), n.Title())
				return err
			})
		},
	}
}

func kindLabel(t api.LibraryItemType) string {
	switch t {
	case api.LibraryFolder:
		return "[folder]"
	case api.LibraryCollection:
		return "[collection]"
	default:
		return "[feed]"
	}
}

func newDetectCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "detect <url>",
		Short: "Find the feeds a page links to",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			env, err := flags.setup(c)
			if err != nil {
				return err
			}
			res, err := env.Client.Feeds.Detect(c.Context(), args[0])
			if err != nil {
				return fmt.Errorf("detect: %w", err)
			}
			out := c.OutOrStdout()
			if res.Feed != nil {
				fmt.Fprintf(out, "Known feed: %s <%s>\n", res.Feed.Title, res.Feed.SourceURL)
				return nil
			}
			if len(res.Candidates) == 0 {
				fmt.Fprintln(out, "No feeds found")
				return nil
			}
			for _, cand := range res.Candidates {
				fmt.Fprintf(out, "%s\t%s\n", cand.Title, cand.URL)
			}
			return nil
		},
	}
}

var importKinds = []string{"feeds", "bookmarks", "subscriptions"}

func newImportCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:       "import <feeds|bookmarks|subscriptions> <file>",
		Short:     "Upload an OPML or bookmarks file",
		Args:      cobra.ExactArgs(2),
		ValidArgs: importKinds,
		RunE: func(c *cobra.Command, args []string) error {
			kind, path := args[0], args[1]
			env, err := flags.setup(c)
			if err != nil {
				return err
			}

			var upload func(context.Context, api.Upload, ...api.CallOption) error
			switch kind {
			case "feeds":
				upload = env.Client.Feeds.Import
			case "bookmarks":
				upload = env.Client.Bookmarks.Import
			case "subscriptions":
				upload = env.Client.Subscriptions.Import
			default:
				return fmt.Errorf("unknown import kind %q (want one of %s)", kind, strings.Join(importKinds, ", "))
			}

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer f.Close()

			if err := upload(c.Context(), api.Upload{Filename: filepath.Base(path), Content: f}); err != nil {
				return fmt.Errorf("import %s: %w", kind, err)
			}
			fmt.Fprintf(c.OutOrStdout(), "Imported %s from %s\n", kind, path)
			return nil
		},
	}
}

func newExportCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Download subscriptions as OPML; - writes to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			env, err := flags.setup(c)
			if err != nil {
				return err
			}
			data, err := env.Client.Subscriptions.Export(c.Context())
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			if args[0] == "-" {
				_, err = c.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(args[0], data, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(c.ErrOrStderr(), "Wrote %d bytes to %s\n", len(data), args[0])
			return nil
		},
	}
}

func newLogsCommand(flags *rootFlags) *cobra.Command {
	var lines int
	var plain bool
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the end of the browser log written by browse -v",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			path := logtail.Path(cfg.SessionPath)
			got, err := logtail.Read(path, lines)
			if err != nil {
				return err
			}
			out := c.OutOrStdout()
			if len(got) == 0 {
				fmt.Fprintf(out, "No log at %s; run quire browse -v to write one\n", path)
				return nil
			}
			for _, line := range got {
				if !plain {
					line = logtail.Colorize(line)
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "number of lines to print; 0 prints all")
	cmd.Flags().BoolVar(&plain, "plain", false, "print without colors")
	return cmd
}

// prompt reads one line from the command's input.
func prompt(c *cobra.Command, label string) (string, error) {
	fmt.Fprint(c.ErrOrStderr(), label)
	line, err := bufio.NewReader(c.InOrStdin()).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
