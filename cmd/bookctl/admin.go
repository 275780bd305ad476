package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/iliyamo/bookcore/internal/model"
	"github.com/iliyamo/bookcore/internal/repository"
	"github.com/iliyamo/bookcore/internal/utils"
)

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}

	var email, password string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email = strings.ToLower(strings.TrimSpace(email))
			if email == "" {
				return errors.New("--email is required")
			}
			if password == "" {
				p, err := promptPassword(cmd)
				if err != nil {
					return err
				}
				password = p
			}

			cost := 12
			if v := os.Getenv("BCRYPT_COST"); v != "" {
				n, err := strconv.Atoi(v)
				if err != nil {
					return fmt.Errorf("BCRYPT_COST: %w", err)
				}
				cost = n
			}
			hash, err := utils.HashPassword(password, cost)
			if err != nil {
				return err
			}

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			u := model.User{Email: email, PasswordHash: hash, Role: model.RoleAdmin}
			if err := repository.NewMySQLStore(db).Users().Create(cmd.Context(), &u); err != nil {
				if errors.Is(err, repository.ErrEmailExists) {
					return fmt.Errorf("%s already has an account", email)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", u.Email, u.ID)
			return nil
		},
	}
	create.Flags().StringVar(&email, "email", "", "admin email address")
	create.Flags().StringVar(&password, "password", "", "password; prompted for when omitted")

	cmd.AddCommand(create)
	return cmd
}

// promptPassword reads a password without echo.  It refuses to read from a
// pipe so that scripts pass --password explicitly.
func promptPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("--password is required when stdin is not a terminal")
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", err
	}
	if len(b) == 0 {
		return "", errors.New("empty password")
	}
	return string(b), nil
}
