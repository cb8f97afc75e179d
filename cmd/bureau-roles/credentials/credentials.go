// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package credentials implements "bureau-roles credentials": creating
// an age identity and sealing a credential file to one or more public
// keys, so the admin token never rests on disk in plaintext.
package credentials

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/bureau-roles/cmd/bureau-roles/cli"
	"github.com/bureau-foundation/bureau-roles/lib/sealed"
	"github.com/bureau-foundation/bureau-roles/lib/secret"
)

// Command returns the "credentials" command group using the process's
// standard streams.
func Command() *cli.Command {
	return newCommand(os.Stdin, os.Stdout)
}

func newCommand(in io.Reader, out io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "credentials",
		Summary: "Create identities and seal credential files",
		Description: `A credential file holds MATRIX_HOMESERVER_URL, MATRIX_ADMIN_TOKEN,
and optionally MATRIX_ADMIN_USER as KEY=VALUE lines. Sealed with age,
it is only readable with a matching identity (--identity-file).`,
		Subcommands: []*cli.Command{
			keygenCommand(out),
			sealCommand(in, out),
		},
		Examples: []cli.Example{
			{
				Description: "Create an identity and seal a credential file to it",
				Command:     "bureau-roles credentials keygen --out ~/.config/bureau-roles/identity && bureau-roles credentials seal --recipient age1... --in creds.env --out creds.age",
			},
		},
	}
}

type keygenParams struct {
	Out string
}

func keygenCommand(out io.Writer) *cli.Command {
	var params keygenParams

	return &cli.Command{
		Name:    "keygen",
		Summary: "Generate an age identity",
		Description: `Generate an X25519 age identity. With --out the identity is written to
a new file readable only by you and the public key is printed;
without it the identity file is printed.`,
		Usage: "bureau-roles credentials keygen [--out path]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("keygen", pflag.ContinueOnError)
			flagSet.StringVar(&params.Out, "out", "", "write the identity to this file (must not exist)")
			return flagSet
		},
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			keypair, err := sealed.GenerateKeypair()
			if err != nil {
				return err
			}
			defer keypair.Close()

			identity := keypair.IdentityFile()
			defer secret.Zero(identity)
			if params.Out == "" {
				_, err := out.Write(identity)
				return err
			}
			if err := writeNewFile(params.Out, identity); err != nil {
				return err
			}
			logger.Info("identity written", "path", params.Out)
			fmt.Fprintf(out, "public key: %s\n", keypair.PublicKey)
			return nil
		},
	}
}

type sealParams struct {
	Recipients []string
	In         string
	Out        string
	Force      bool
}

func sealCommand(in io.Reader, out io.Writer) *cli.Command {
	var params sealParams

	return &cli.Command{
		Name:    "seal",
		Summary: "Seal a credential file to age recipients",
		Description: `Encrypt a credential file to every --recipient so that any of the
matching identities can open it. The input must be KEY=VALUE lines
with at least MATRIX_ADMIN_TOKEN. Output is ASCII-armored.`,
		Usage: "bureau-roles credentials seal --recipient age1... [--in path] [--out path]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("seal", pflag.ContinueOnError)
			flagSet.StringArrayVar(&params.Recipients, "recipient", nil, "age public key (repeatable)")
			flagSet.StringVar(&params.In, "in", "", "plaintext credential file (default stdin)")
			flagSet.StringVar(&params.Out, "out", "", "sealed output file (default stdout)")
			flagSet.BoolVar(&params.Force, "force", false, "overwrite --out if it exists")
			return flagSet
		},
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			return runSeal(in, out, params, logger)
		},
	}
}

func runSeal(in io.Reader, out io.Writer, params sealParams, logger *slog.Logger) error {
	if len(params.Recipients) == 0 {
		return fmt.Errorf("at least one --recipient is required")
	}
	for _, recipient := range params.Recipients {
		if err := sealed.ParsePublicKey(recipient); err != nil {
			return fmt.Errorf("--recipient: %w", err)
		}
	}

	var plaintext []byte
	var err error
	if params.In != "" {
		plaintext, err = os.ReadFile(params.In)
	} else {
		plaintext, err = io.ReadAll(in)
	}
	if err != nil {
		return fmt.Errorf("reading credentials: %w", err)
	}
	defer secret.Zero(plaintext)

	if sealed.IsSealed(plaintext) {
		return fmt.Errorf("input is already sealed")
	}
	credentials, err := cli.ParseCredentials(bytes.NewReader(plaintext))
	if err != nil {
		return err
	}
	if credentials[cli.CredentialToken] == "" {
		return fmt.Errorf("input has no %s line", cli.CredentialToken)
	}

	ciphertext, err := sealed.Seal(plaintext, params.Recipients)
	if err != nil {
		return err
	}
	if params.Out == "" {
		_, err := out.Write(ciphertext)
		return err
	}
	if params.Force {
		if err := os.WriteFile(params.Out, ciphertext, 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", params.Out, err)
		}
	} else if err := writeNewFile(params.Out, ciphertext); err != nil {
		return err
	}
	logger.Info("credentials sealed", "path", params.Out, "recipients", len(params.Recipients))
	return nil
}

// writeNewFile creates path with owner-only permissions, refusing to
// replace an existing file.
func writeNewFile(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s already exists", path)
		}
		return err
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return file.Close()
}
