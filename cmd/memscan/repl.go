package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/fuqiuluo/memscan/manager"
	"github.com/fuqiuluo/memscan/query"
	"github.com/fuqiuluo/memscan/region"
	"github.com/fuqiuluo/memscan/value"
)

// newReplCmd builds the interactive session command: attach once,
// then issue region/search/refine/results/clear/help/quit commands against
// one long-lived manager.Manager, the workflow a one-shot `memscan
// search` invocation can't support since its process exits before a
// refine step could run.
func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "attach once and interactively search/refine/filter results",
		RunE: func(cmd *cobra.Command, args []string) error {
			rdr, err := attach(flagPid)
			if err != nil {
				return err
			}
			if closer, ok := rdr.(interface{ Close() }); ok {
				defer closer.Close()
			}

			m := manager.Init(rdr, loadConfig(), newLogger())
			defer manager.Shutdown()

			rl, err := readline.New("memscan> ")
			if err != nil {
				return fmt.Errorf("memscan: readline: %w", err)
			}
			defer rl.Close()

			var regions []region.Region
			for {
				line, err := rl.Readline()
				if err == readline.ErrInterrupt {
					continue
				}
				if err == io.EOF {
					return nil
				}
				if err != nil {
					return err
				}
				fields := strings.Fields(line)
				if len(fields) == 0 {
					continue
				}
				switch fields[0] {
				case "quit", "exit":
					return nil
				case "region":
					regions, err = handleRegion(flagPid, fields[1:])
				case "search":
					err = handleSearch(m, regions, fields[1:])
				case "refine":
					err = handleRefine(m, fields[1:])
				case "results":
					handleResults(m, fields[1:])
				case "clear":
					m.ClearResults()
				case "help":
					printReplHelp()
				default:
					err = fmt.Errorf("unknown command %q (try help)", fields[0])
				}
				if err != nil {
					fmt.Println("error:", err)
				}
			}
		},
	}
}

func printReplHelp() {
	fmt.Println(`commands:
  region <lo> <hi>           set the address range to scan
  region auto                scan every writable mapping of the target
  search <type> [value]      run a search (omit value for wildcard)
  search --deep <type> <v>   deep matching (no effect on a single value)
  refine <type> [value]      narrow previous results
  results [start] [size]     page through current matches
  clear                      discard all matches
  quit                       leave the session`)
}

func handleRegion(pid int, args []string) ([]region.Region, error) {
	if len(args) == 1 && args[0] == "auto" {
		return resolveRegions(pid, 0, 0)
	}
	if len(args) != 2 {
		return nil, fmt.Errorf("usage: region <lo> <hi> | region auto")
	}
	lo, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return nil, err
	}
	hi, err := strconv.ParseUint(args[1], 0, 64)
	if err != nil {
		return nil, err
	}
	return []region.Region{{Start: region.Address(lo), End: region.Address(hi)}}, nil
}

func handleSearch(m *manager.Manager, regions []region.Region, args []string) error {
	if len(regions) == 0 {
		return fmt.Errorf("no region set; run: region <lo> <hi>")
	}
	deep := false
	if len(args) > 0 && args[0] == "--deep" {
		deep = true
		args = args[1:]
	}
	if len(args) == 0 {
		return fmt.Errorf("usage: search [--deep] <type> [value]")
	}
	typeName := args[0]
	valueStr := ""
	if len(args) > 1 {
		valueStr = args[1]
	}
	_, desc, err := parseScalarQuery(typeName, valueStr)
	if err != nil {
		return err
	}
	q := &query.Query{Values: []value.Descriptor{desc}}
	if err := q.Validate(); err != nil {
		return err
	}
	if _, err := m.SearchMemory(regions, q, manager.SearchOptions{Deep: deep}); err != nil {
		fmt.Println("warning:", err)
	}
	fmt.Printf("%d match(es)\n", m.GetTotalCount())
	return nil
}

func handleRefine(m *manager.Manager, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: refine <type> [value]")
	}
	typeName := args[0]
	valueStr := ""
	if len(args) > 1 {
		valueStr = args[1]
	}
	_, desc, err := parseScalarQuery(typeName, valueStr)
	if err != nil {
		return err
	}
	q := &query.Query{Values: []value.Descriptor{desc}}
	if err := m.RefineSearch(q); err != nil {
		return err
	}
	fmt.Printf("%d match(es) remain\n", m.GetTotalCount())
	return nil
}

func handleResults(m *manager.Manager, args []string) {
	start, size := 0, 20
	if len(args) > 0 {
		if v, err := strconv.Atoi(args[0]); err == nil {
			start = v
		}
	}
	if len(args) > 1 {
		if v, err := strconv.Atoi(args[1]); err == nil {
			size = v
		}
	}
	for _, p := range m.GetResults(start, size) {
		fmt.Printf("%s  %s\n", p.Addr, p.Type)
	}
}
