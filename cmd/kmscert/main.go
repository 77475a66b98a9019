package main

import (
	"context"
	"errors"
	"os"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"

	"github.com/hongkongkiwi/kmscert/cmd/kmscert/internal/commands"
	"github.com/hongkongkiwi/kmscert/internal/logger"
)

var (
	version = "dev"
	cli     struct {
		Issue     commands.IssueCmd     `cmd:"" help:"Issue a self-signed certificate"`
		Verify    commands.VerifyCmd    `cmd:"" help:"Verify a certificate against a reference public key"`
		CheckKey  commands.CheckKeyCmd  `cmd:"" help:"Check a KMS key and print its resolved signing algorithm"`
		Bootstrap commands.BootstrapCmd `cmd:"" help:"Provision development resources (LocalStack or test account)"`
		Debug     bool                  `help:"Enable debug mode."`
		Version   kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	log.Logger = logger.Setup(cli.Debug)

	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})

	var exitErr *commands.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Message != "" {
			log.Warn().Msg(exitErr.Message)
		}
		os.Exit(exitErr.Code)
	}

	cmd.FatalIfErrorf(err)
}
