package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/backy/backy/internal/debug"
	"github.com/backy/backy/internal/errors"
	"github.com/backy/backy/internal/fs"
)

func init() {
	// don't import `go.uber.org/automaxprocs` to disable the log output
	_, _ = maxprocs.Set()
}

var cmdGroupDefault = "default"
var cmdGroupTransfer = "transfer"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backy",
		Short: "Chunk, encrypt and store files",
		Long: `
backy splits files into content-defined chunks, optionally encrypts them with
a password and stores them as blobs in a local repository. Files can also be
copied to plain directories, uploaded via SFTP or snapshotted with kopia.
`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		DisableAutoGenTag: true,

		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return globalOptions.PreRun()
		},
	}

	cmd.AddGroup(
		&cobra.Group{
			ID:    cmdGroupDefault,
			Title: "Available Commands:",
		},
		&cobra.Group{
			ID:    cmdGroupTransfer,
			Title: "Transfer Commands:",
		},
	)

	globalOptions.AddFlags(cmd.PersistentFlags())

	cmd.CompletionOptions.DisableDefaultCmd = true

	cmd.AddCommand(
		newCatCommand(),
		newChunkCommand(),
		newInitCommand(),
		newListCommand(),
		newSaveCommand(),
		newSaveLocalCommand(),
		newSnapshotCommand(),
		newUploadCommand(),
		newVersionCommand(),
	)

	registerProfiling(cmd)

	return cmd
}

// exitCode maps an error returned by a command to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return 130
	}

	switch errors.KindOf(err) {
	case errors.KindConfig:
		return 2
	case errors.KindIO:
		return 3
	case errors.KindSerialization:
		return 4
	case errors.KindCrypto:
		return 5
	default:
		return 1
	}
}

// exitMessage formats err for the user. Unexpected errors include a stack
// trace and anything logged by libraries.
func exitMessage(err error, logBuffer *bytes.Buffer) string {
	switch {
	case errors.IsFatal(err):
		return err.Error()
	case errors.Is(err, context.Canceled):
		return "canceled"
	case fs.IsNoSpace(err):
		return fmt.Sprintf("%v: %v\nthe disk is full", errors.KindOf(err), err)
	case errors.IsKind(err, errors.KindCrypto):
		return fmt.Sprintf("%v: %v\nwrong password or corrupted data", errors.KindOf(err), err)
	case errors.KindOf(err) != errors.KindOther:
		return fmt.Sprintf("%v: %v", errors.KindOf(err), err)
	}

	msg := fmt.Sprintf("%+v", err)
	if logBuffer != nil && logBuffer.Len() > 0 {
		msg += "\nalso, the following messages were logged by a library:\n"
		sc := bufio.NewScanner(logBuffer)
		for sc.Scan() {
			msg += fmt.Sprintln(sc.Text())
		}
	}
	return msg
}

func main() {
	// install custom global logger into a buffer, if an error occurs
	// we can show the logs
	logBuffer := bytes.NewBuffer(nil)
	log.SetOutput(logBuffer)

	debug.Log("main %#v", os.Args)
	debug.Log("backy %s compiled with %v on %v/%v",
		version, runtime.Version(), runtime.GOOS, runtime.GOARCH)

	ctx := createGlobalContext()
	err := newRootCommand().ExecuteContext(ctx)
	if err == nil {
		err = ctx.Err()
	}

	code := exitCode(err)
	if code != 0 {
		_, _ = fmt.Fprintln(globalOptions.stderr, exitMessage(err, logBuffer))
	}
	Exit(code)
}
