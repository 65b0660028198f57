package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type schemaMigrator interface {
	Up(ctx context.Context) error
}

type userCreator interface {
	Create(ctx context.Context, req service.CreateUserRequest) (*models.User, error)
}

type availabilityReconciler interface {
	ReconcileTeacher(ctx context.Context, teacherID string) (*models.ReconcileReport, error)
	ReconcileAll(ctx context.Context) ([]models.ReconcileReport, error)
	Verify(ctx context.Context) ([]models.ReconcileReport, error)
}

type commandLine struct {
	migrator   schemaMigrator
	users      userCreator
	reconciler availabilityReconciler
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate                                          - apply pending schema migrations")
	fmt.Fprintln(cli.out, "  create-user -email EMAIL -name NAME -role ROLE   - create an account, password is prompted")
	fmt.Fprintln(cli.out, "  reconcile [-teacher ID]                          - rebuild availability from schedules")
	fmt.Fprintln(cli.out, "  verify                                           - report availability drift without repairing")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		return cli.migrator.Up(ctx)
	case "create-user":
		return cli.createUser(ctx, args[2:])
	case "reconcile":
		return cli.reconcile(ctx, args[2:])
	case "verify":
		return cli.verify(ctx)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) createUser(ctx context.Context, args []string) error {
	cmd := flag.NewFlagSet("create-user", flag.ContinueOnError)
	cmd.SetOutput(cli.out)
	email := cmd.String("email", "", "login email")
	name := cmd.String("name", "", "full name")
	role := cmd.String("role", string(models.RoleTeacher), "ADMIN, TEACHER or STUDENT")
	if err := cmd.Parse(args); err != nil {
		return err
	}
	if *email == "" || *name == "" {
		cmd.Usage()
		return errHelp
	}

	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return err
	}
	if len(pwd) == 0 {
		cmd.Usage()
		return errHelp
	}

	user, err := cli.users.Create(ctx, service.CreateUserRequest{
		Email:    *email,
		FullName: *name,
		Role:     models.UserRole(strings.ToUpper(*role)),
		Password: string(pwd),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "created %s %s (%s)\n", user.Role, user.Email, user.ID)
	return nil
}

func (cli *commandLine) reconcile(ctx context.Context, args []string) error {
	cmd := flag.NewFlagSet("reconcile", flag.ContinueOnError)
	cmd.SetOutput(cli.out)
	teacher := cmd.String("teacher", "", "only reconcile this teacher")
	if err := cmd.Parse(args); err != nil {
		return err
	}

	if *teacher != "" {
		report, err := cli.reconciler.ReconcileTeacher(ctx, *teacher)
		if err != nil {
			return err
		}
		return cli.print(report)
	}

	reports, err := cli.reconciler.ReconcileAll(ctx)
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		fmt.Fprintln(cli.out, "all availability records consistent")
		return nil
	}
	return cli.print(reports)
}

func (cli *commandLine) verify(ctx context.Context) error {
	reports, err := cli.reconciler.Verify(ctx)
	if err != nil && !appErrors.Is(err, appErrors.ErrConsistency) {
		return err
	}
	if len(reports) > 0 {
		if printErr := cli.print(reports); printErr != nil {
			return printErr
		}
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "all availability records consistent")
	return nil
}

func (cli *commandLine) print(v interface{}) error {
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
