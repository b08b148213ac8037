package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/noah-isme/course-management-api/internal/models"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type userCreator interface {
	Create(ctx context.Context, user *models.User) error
}

type commandLine struct {
	db     *sql.DB
	users  userCreator
	logger *zap.Logger
	stdout io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.stdout, "Usage:")
	fmt.Fprintln(cli.stdout, "  migrate up|down|status|version|redo|reset [args] - run database migrations")
	fmt.Fprintln(cli.stdout, "  createadmin -email EMAIL -first NAME -last NAME   - create an ADMIN account; the password is prompted next")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createAdminCmd := flag.NewFlagSet("createadmin", flag.ContinueOnError)
	createAdminCmd.SetOutput(cli.stdout)
	email := createAdminCmd.String("email", "", "The admin's email address.")
	firstName := createAdminCmd.String("first", "Admin", "The admin's first name.")
	lastName := createAdminCmd.String("last", "User", "The admin's last name.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "createadmin":
		if err := createAdminCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *email == "" {
			createAdminCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.stdout, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.stdout)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			createAdminCmd.Usage()
			return errHelp
		}
		return cli.createAdmin(*email, *firstName, *lastName, string(pwd))
	default:
		cli.printUsage()
		return errHelp
	}
}
