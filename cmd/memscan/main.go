// Command memscan is a command-line front end over the manager
// package: attach to a process by pid, run a single-value search
// against its mapped regions, and page through results — either as a
// single scripted command or interactively through the repl
// subcommand.
//
// Grounded on golang-debug's cmd/viewcore, which mixes the same two
// styles (a flag.FlagSet-driven main for simple global flags, cobra
// for the richer objref subcommand); this CLI standardizes on cobra
// throughout, since the whole command tree here needs subcommands
// and persistent flags, not just one.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fuqiuluo/memscan/config"
	"github.com/fuqiuluo/memscan/manager"
	"github.com/fuqiuluo/memscan/query"
	"github.com/fuqiuluo/memscan/reader"
	"github.com/fuqiuluo/memscan/reader/ptrace"
	"github.com/fuqiuluo/memscan/region"
	"github.com/fuqiuluo/memscan/value"
)

var (
	flagPid       int
	flagConfig    string
	flagLogLevel  string
	flagChunkSize int
)

func main() {
	root := &cobra.Command{
		Use:   "memscan",
		Short: "scan a live process's memory for a value or a sequence of values",
	}
	root.PersistentFlags().IntVar(&flagPid, "pid", 0, "target process id (required)")
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "optional TOML config file")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "logrus level: debug, info, warn, error")

	root.AddCommand(newSearchCmd())
	root.AddCommand(newReplCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	lvl, err := logrus.ParseLevel(flagLogLevel)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

func loadConfig() config.Config {
	if flagConfig == "" {
		return config.Default()
	}
	cfg, err := config.Load(flagConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "memscan: %v, using defaults\n", err)
		return config.Default()
	}
	return cfg
}

func attach(pid int) (reader.Reader, error) {
	if pid <= 0 {
		return nil, fmt.Errorf("memscan: --pid is required")
	}
	// Attaching/seizing the tracee and waiting for it to stop is the
	// host's responsibility (spec.md §1 scopes it out of the core);
	// a real deployment would PTRACE_SEIZE here before constructing
	// the reader. This CLI assumes the caller already arranged that,
	// e.g. via a wrapping launcher script.
	return ptrace.New(pid, reader.AccessNormal), nil
}

func newSearchCmd() *cobra.Command {
	var (
		typeName string
		valueStr string
		lo, hi   uint64
		deep     bool
		pageSize int
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "run a single-value search across the target's writable mappings (or --lo/--hi) and print matches",
		RunE: func(cmd *cobra.Command, args []string) error {
			rdr, err := attach(flagPid)
			if err != nil {
				return err
			}
			if closer, ok := rdr.(interface{ Close() }); ok {
				defer closer.Close()
			}

			typ, desc, err := parseScalarQuery(typeName, valueStr)
			if err != nil {
				return err
			}
			q := &query.Query{Values: []value.Descriptor{desc}}
			if err := q.Validate(); err != nil {
				return err
			}

			regions, err := resolveRegions(flagPid, lo, hi)
			if err != nil {
				return err
			}
			cfg := loadConfig()
			if flagChunkSize > 0 {
				cfg.ChunkSize = flagChunkSize
			}
			m := manager.Init(rdr, cfg, newLogger())

			if _, err := m.SearchMemory(regions, q, manager.SearchOptions{Deep: deep}); err != nil {
				fmt.Fprintf(os.Stderr, "memscan: search reported errors: %v\n", err)
			}

			printResults(m, pageSize)
			_ = typ
			return nil
		},
	}
	cmd.Flags().StringVar(&typeName, "type", "dword", "value type: byte,word,dword,qword,float,double")
	cmd.Flags().StringVar(&valueStr, "value", "", "exact value to search for")
	cmd.Flags().Uint64Var(&lo, "lo", 0, "region start address (0 with --hi=0: scan every writable mapping)")
	cmd.Flags().Uint64Var(&hi, "hi", 0, "region end address")
	cmd.Flags().BoolVar(&deep, "deep", false, "use exhaustive deep matching (group queries only; no effect on this single-value search)")
	cmd.Flags().IntVar(&pageSize, "page-size", 50, "how many results to fetch per page while printing every match")
	cmd.Flags().IntVar(&flagChunkSize, "chunk-size", 0, "override configured chunk size in bytes")
	return cmd
}

// resolveRegions returns [lo, hi) verbatim when the caller gave an
// explicit range, otherwise enumerates the target's writable mappings
// via /proc/pid/maps (region.ReadProcMaps) — a value search only ever
// needs writable memory, so read-only and executable mappings are
// skipped.
func resolveRegions(pid int, lo, hi uint64) ([]region.Region, error) {
	if hi > lo {
		return []region.Region{{Start: region.Address(lo), End: region.Address(hi)}}, nil
	}
	all, err := region.ReadProcMaps(pid)
	if err != nil {
		return nil, err
	}
	var regions []region.Region
	for _, r := range all {
		if r.Perm&region.Write != 0 {
			regions = append(regions, r)
		}
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("memscan: no writable mappings found for pid %d", pid)
	}
	return regions, nil
}

func parseScalarQuery(typeName, valueStr string) (value.Type, value.Descriptor, error) {
	var typ value.Type
	switch strings.ToLower(typeName) {
	case "byte":
		typ = value.Byte
	case "word":
		typ = value.Word
	case "dword":
		typ = value.Dword
	case "qword":
		typ = value.Qword
	case "float":
		typ = value.Float
	case "double":
		typ = value.Double
	default:
		return 0, nil, fmt.Errorf("memscan: unknown type %q", typeName)
	}

	if valueStr == "" {
		return typ, value.Wildcard{Typ: typ}, nil
	}
	if typ.IsFloat() {
		f, err := strconv.ParseFloat(valueStr, 64)
		if err != nil {
			return 0, nil, fmt.Errorf("memscan: bad float value %q: %w", valueStr, err)
		}
		return typ, value.FixedFloat{Value: f, Typ: typ}, nil
	}
	v, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("memscan: bad integer value %q: %w", valueStr, err)
	}
	return typ, value.NewFixedInt(v, typ), nil
}

func printResults(m *manager.Manager, pageSize int) {
	total := m.GetTotalCount()
	fmt.Printf("%d match(es)\n", total)
	for start := 0; start < total; start += pageSize {
		for _, p := range m.GetResults(start, pageSize) {
			fmt.Printf("%s  %s\n", p.Addr, p.Type)
		}
	}
}
