package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"optiplus/internal/client"
	"optiplus/internal/session"
)

const defaultServer = "http://localhost:8080"

// cli carries what every command needs.
type cli struct {
	v        *viper.Viper
	sessions session.Store
}

func (c *cli) manager() *session.Manager {
	return session.NewManager(c.sessions)
}

func (c *cli) client() (*client.Client, error) {
	return client.New(c.v.GetString("server"), client.WithTimeout(c.v.GetDuration("timeout")))
}

// requireLogin gates dataset commands behind a local session.
func (c *cli) requireLogin(cmd *cobra.Command, _ []string) error {
	if _, err := c.manager().Current(); err != nil {
		if errors.Is(err, session.ErrNotAuthenticated) {
			return fmt.Errorf("%w: run '%s login' first", err, cmd.Root().Name())
		}
		return err
	}
	return nil
}

// newRootCmd builds the command tree. A nil store selects the session file from
// --session-file or the user config directory.
func newRootCmd(sessions session.Store) *cobra.Command {
	c := &cli{v: viper.New(), sessions: sessions}

	root := &cobra.Command{
		Use:           "datasetctl",
		Short:         "Upload, browse and export CSV datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.sessions != nil {
				return nil
			}
			path := c.v.GetString("session-file")
			if path == "" {
				p, err := session.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}
			c.sessions = session.NewFileStore(path)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String("server", defaultServer, "dataset server base URL (env OPTIPLUS_SERVER)")
	flags.Duration("timeout", 30*time.Second, "per-request timeout (env OPTIPLUS_TIMEOUT)")
	flags.String("session-file", "", "session file path (env OPTIPLUS_SESSION_FILE)")

	c.v.SetEnvPrefix("OPTIPLUS")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()
	for _, name := range []string{"server", "timeout", "session-file"} {
		_ = c.v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(
		newListCmd(c),
		newGetCmd(c),
		newUploadCmd(c),
		newDeleteCmd(c),
		newExportCmd(c),
		newLoginCmd(c),
		newRegisterCmd(c),
		newLogoutCmd(c),
		newWhoamiCmd(c),
	)
	return root
}
