package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/repository"
	"github.com/spec-kit/account-service/internal/service"
)

type seedAdminOptions struct {
	username string
	password string
	email    string
}

// NewSeedAdminCmd creates the seed-admin subcommand. Flags override AUTH_SEED_ADMIN_* values.
func NewSeedAdminCmd() *cobra.Command {
	opts := &seedAdminOptions{}

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the bootstrap administrator if it does not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeedAdmin(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.username, "username", "", "admin username")
	cmd.Flags().StringVar(&opts.password, "password", "", "admin password")
	cmd.Flags().StringVar(&opts.email, "email", "", "admin email")
	return cmd
}

func (o *seedAdminOptions) resolve(username, password, email string) {
	if o.username == "" {
		o.username = username
	}
	if o.password == "" {
		o.password = password
	}
	if o.email == "" {
		o.email = email
	}
}

func runSeedAdmin(cmd *cobra.Command, opts *seedAdminOptions) error {
	deps, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer deps.Close()

	authCfg := deps.cfg.Auth
	opts.resolve(authCfg.SeedAdminUsername, authCfg.SeedAdminPassword, authCfg.SeedAdminEmail)
	if opts.password == "" {
		return errors.New("admin password required: pass --password or set AUTH_SEED_ADMIN_PASSWORD")
	}

	accounts := service.NewAccountService(service.AccountDependencies{
		AccountRepo: repository.NewAccountRepository(deps.pg.PoolHandle()),
		Hasher:      auth.NewArgon2idHasher(),
		Logger:      deps.logger,
	})
	created, err := accounts.EnsureAdmin(cmd.Context(), opts.username, opts.password, opts.email)
	if err != nil {
		return err
	}
	if created {
		cmd.Printf("created admin %q\n", opts.username)
	} else {
		cmd.Printf("admin %q already exists\n", opts.username)
	}
	return nil
}
