// Command labadmin performs one-off administrative tasks against the
// paleolab database.
//
//	labadmin create-admin -email E -username U -first F -last L [server flags]
//
// Missing fields are prompted for; the password is always read from the
// terminal, twice, without echo.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/paleolab/internal/flagx"
	"github.com/dmitrijs2005/paleolab/internal/server"
	"github.com/dmitrijs2005/paleolab/internal/server/config"
	"github.com/dmitrijs2005/paleolab/internal/server/models"
	"github.com/dmitrijs2005/paleolab/internal/server/services"
)

const usage = "usage: labadmin create-admin -email E -username U -first F -last L"

var errPasswordMismatch = errors.New("passwords do not match")

// bootstrap stores the first admin. Replaced in tests.
var bootstrap = func(ctx context.Context, cfg *config.Config, in services.EmployeeInput) (*models.Employee, error) {
	logger, err := server.NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	st, err := server.OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer st.DB.Close()

	es := services.NewEmployeeService(st.DB, st.Manager, st.Manager.Sessions(st.DB), logger)
	return es.Bootstrap(ctx, in)
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "labadmin:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, out io.Writer) error {
	if len(args) == 0 || args[0] != "create-admin" {
		return errors.New(usage)
	}
	args = args[1:]

	cfg, err := config.LoadConfig(args, ".env")
	if err != nil {
		return err
	}

	var in services.EmployeeInput
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&in.Email, "email", "", "email")
	fs.StringVar(&in.Username, "username", "", "username")
	fs.StringVar(&in.FirstName, "first", "", "first name")
	fs.StringVar(&in.LastName, "last", "", "last name")
	if err := fs.Parse(flagx.NewFilter([]string{"email", "username", "first", "last"}).Apply(args)); err != nil {
		return err
	}

	reader := bufio.NewReader(stdin)
	for _, f := range []struct {
		prompt string
		dst    *string
	}{
		{"Email", &in.Email},
		{"Username", &in.Username},
		{"First name", &in.FirstName},
		{"Last name", &in.LastName},
	} {
		if *f.dst != "" {
			continue
		}
		if *f.dst, err = getSimpleText(reader, f.prompt, out); err != nil {
			return err
		}
	}

	if in.Password, err = getPassword("Password", out); err != nil {
		return err
	}
	if in.ConfirmPassword, err = getPassword("Confirm password", out); err != nil {
		return err
	}
	if in.Password != in.ConfirmPassword {
		return errPasswordMismatch
	}

	e, err := bootstrap(ctx, cfg, in)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "admin %s (%s) created with id %d\n", e.Username, e.FullName(), e.ID)
	return nil
}
