//go:build debug

package main

import (
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/backy/backy/internal/crypto"
	"github.com/backy/backy/internal/errors"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type ProfileOptions struct {
	listen    string
	memPath   string
	cpuPath   string
	tracePath string
	blockPath string
	insecure  bool
}

func (opts *ProfileOptions) AddFlags(f *pflag.FlagSet) {
	f.StringVar(&opts.listen, "listen-profile", "", "listen on this `address:port` for memory profiling")
	f.StringVar(&opts.memPath, "mem-profile", "", "write memory profile to `dir`")
	f.StringVar(&opts.cpuPath, "cpu-profile", "", "write cpu profile to `dir`")
	f.StringVar(&opts.tracePath, "trace-profile", "", "write trace to `dir`")
	f.StringVar(&opts.blockPath, "block-profile", "", "write block profile to `dir`")
	f.BoolVar(&opts.insecure, "insecure-kdf", false, "use insecure KDF settings")
}

type fakeTestingTB struct{}

func (fakeTestingTB) Logf(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, msg, args...)
}

func (fakeTestingTB) Cleanup(func()) {}

type profiler struct {
	opts ProfileOptions
	stop interface {
		Stop()
	}
}

func registerProfiling(cmd *cobra.Command) {
	var prof profiler

	origPreRun := cmd.PersistentPreRunE
	cmd.PersistentPreRunE = func(c *cobra.Command, args []string) error {
		if origPreRun != nil {
			if err := origPreRun(c, args); err != nil {
				return err
			}
		}
		return prof.Start()
	}

	// Once https://github.com/spf13/cobra/issues/1893 is fixed,
	// this could use PersistentPostRunE instead of OnFinalize,
	// reducing shared state.
	cobra.OnFinalize(prof.Stop)

	prof.opts.AddFlags(cmd.PersistentFlags())
}

func (p *profiler) Start() error {
	if p.opts.listen != "" {
		fmt.Fprintf(os.Stderr, "running profile HTTP server on %v\n", p.opts.listen)
		go func() {
			err := http.ListenAndServe(p.opts.listen, nil)
			if err != nil {
				fmt.Fprintf(os.Stderr, "profile HTTP server listen failed: %v\n", err)
			}
		}()
	}

	profilesEnabled := 0
	for _, path := range []string{p.opts.memPath, p.opts.cpuPath, p.opts.tracePath, p.opts.blockPath} {
		if path != "" {
			profilesEnabled++
		}
	}
	if profilesEnabled > 1 {
		return errors.Fatal("only one profile (memory, CPU, trace, or block) may be activated at the same time")
	}

	switch {
	case p.opts.memPath != "":
		p.stop = profile.Start(profile.Quiet, profile.NoShutdownHook, profile.MemProfile, profile.ProfilePath(p.opts.memPath))
	case p.opts.cpuPath != "":
		p.stop = profile.Start(profile.Quiet, profile.NoShutdownHook, profile.CPUProfile, profile.ProfilePath(p.opts.cpuPath))
	case p.opts.tracePath != "":
		p.stop = profile.Start(profile.Quiet, profile.NoShutdownHook, profile.TraceProfile, profile.ProfilePath(p.opts.tracePath))
	case p.opts.blockPath != "":
		p.stop = profile.Start(profile.Quiet, profile.NoShutdownHook, profile.BlockProfile, profile.ProfilePath(p.opts.blockPath))
	}

	if p.opts.insecure {
		crypto.TestUseLowSecurityKDFParameters(fakeTestingTB{})
	}

	return nil
}

func (p *profiler) Stop() {
	if p.stop != nil {
		p.stop.Stop()
	}
}
