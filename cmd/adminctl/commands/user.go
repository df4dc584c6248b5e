package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/crowlee-bookings/internal/model"
	"github.com/iliyamo/crowlee-bookings/internal/repository"
	"github.com/iliyamo/crowlee-bookings/internal/service"
)

func newCreateUserCommand() *cobra.Command {
	var in service.NewUser

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create an account with an explicit role",
		Example: `  adminctl create-user --name "Front Desk" --email desk@example.com \
    --password 'Passw0rd' --role worker`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			db, err := e.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			svc := service.NewUserService(repository.NewUserRepo(db), nil, e.cfg.BcryptCost, e.log)
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			u, err := svc.Create(ctx, in)
			if err != nil {
				if service.KindOf(err) == service.KindInternal {
					return err
				}
				return errors.New(service.Message(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %d (%s, %s)\n", u.ID, u.Email, u.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "login email")
	cmd.Flags().StringVar(&in.Password, "password", "", "initial password")
	cmd.Flags().StringVar(&in.Role, "role", string(model.RoleWorker), "admin, worker or client")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "contact phone")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newListUsersCommand() *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "list-users",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			db, err := e.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			users, err := repository.NewUserRepo(db).List(ctx)
			if err != nil {
				return err
			}
			return printUsers(cmd.OutOrStdout(), users, role)
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "only show this role")
	return cmd
}

func printUsers(out io.Writer, users []model.User, role string) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE\tCREATED")
	for _, u := range users {
		if role != "" && string(u.Role) != role {
			continue
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role, u.CreatedAt.Format("2006-01-02"))
	}
	return w.Flush()
}
