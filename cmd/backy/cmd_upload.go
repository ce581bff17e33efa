package main

import (
	"context"

	"github.com/backy/backy/internal/backend/sftp"
	"github.com/backy/backy/internal/errors"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newUploadCommand() *cobra.Command {
	var opts UploadOptions

	cmd := &cobra.Command{
		Use:   "upload [flags] FILE...",
		Short: "Upload files to an SFTP server",
		Long: `
The "upload" command copies files to a directory on an SFTP server, for example
blobs exported with "save-local". The destination is given as
sftp://user@host[:port]/directory or sftp:user@host:directory and is created
if needed. The password is read from $BACKY_SFTP_PASSWORD or prompted for.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 2 if the destination is invalid or the login failed.
Exit status is 3 if the connection or a transfer failed.
`,
		GroupID:           cmdGroupTransfer,
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd.Context(), opts, globalOptions, args)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

// UploadOptions bundles all options for the upload command.
type UploadOptions struct {
	To          string
	KnownHosts  string
	Connections uint
	LimitUpload int
}

func (opts *UploadOptions) AddFlags(f *pflag.FlagSet) {
	def := sftp.NewConfig()
	f.StringVar(&opts.To, "to", "", "destination `location` (sftp://user@host/dir)")
	f.StringVar(&opts.KnownHosts, "known-hosts", "", "verify the server key against this known_hosts `file`")
	f.UintVar(&opts.Connections, "connections", def.Connections, "number of concurrent uploads")
	f.IntVar(&opts.LimitUpload, "limit-upload", 0, "limits uploads to a maximum `rate` in KiB/s. (default: unlimited)")
}

func runUpload(ctx context.Context, opts UploadOptions, gopts GlobalOptions, args []string) error {
	if len(args) == 0 {
		return errors.Fatal("no files given")
	}
	if opts.To == "" {
		return errors.E(errors.KindConfig, "upload", "", errors.Fatal("no destination given, use --to"))
	}

	cfg, err := sftp.ParseConfig(opts.To)
	if err != nil {
		return err
	}
	cfg.KnownHosts = opts.KnownHosts
	cfg.Connections = opts.Connections
	cfg.Limit = opts.LimitUpload

	// the sftp password is separate from the encryption password
	pwdOpts := gopts
	pwdOpts.PasswordFile = ""
	pwdOpts.password = ""
	cfg.Password, err = ReadPassword(ctx, pwdOpts, "BACKY_SFTP_PASSWORD", "password for "+cfg.User+"@"+cfg.Host+": ")
	if err != nil {
		return err
	}

	be, err := sftp.Open(ctx, *cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = be.Close()
	}()

	remote, err := be.UploadFiles(ctx, args, be.Location())
	if err != nil {
		return err
	}

	for _, p := range remote {
		Verbosef("uploaded %s\n", p)
	}
	return nil
}
