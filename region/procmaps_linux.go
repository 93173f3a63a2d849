//go:build linux

package region

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ReadProcMaps enumerates the mapped regions of a live process by
// parsing /proc/<pid>/maps, the live-process analogue of
// golang.org/x/debug's core.Mapping enumeration over a core file's
// program headers (core/mapping.go). Only the address range and
// permission bits are taken; file-backing information that the core
// package tracks for its own purposes (source file, offset,
// copy-on-write origin) has no equivalent for a live ptrace target and
// is not reconstructed.
func ReadProcMaps(pid int) ([]Region, error) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/maps", pid))
	if err != nil {
		return nil, fmt.Errorf("region: open proc maps for pid %d: %w", pid, err)
	}
	defer f.Close()

	var regions []Region
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		r, ok, err := parseMapsLine(scanner.Text())
		if err != nil {
			return nil, err
		}
		if ok {
			regions = append(regions, r)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("region: read proc maps for pid %d: %w", pid, err)
	}
	return regions, nil
}

// parseMapsLine parses one /proc/pid/maps line, e.g.:
//
//	7f2c1a000000-7f2c1a021000 rw-p 00000000 00:00 0
//
// ok is false for lines with too few fields or no "-" in the address
// range, which /proc never actually emits but which a caller feeding in
// test fixtures might; a range that is not valid hex is an error.
func parseMapsLine(line string) (Region, bool, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Region{}, false, nil
	}
	addrs := strings.SplitN(fields[0], "-", 2)
	if len(addrs) != 2 {
		return Region{}, false, nil
	}
	lo, err := strconv.ParseUint(addrs[0], 16, 64)
	if err != nil {
		return Region{}, false, fmt.Errorf("region: bad maps range %q: %w", fields[0], err)
	}
	hi, err := strconv.ParseUint(addrs[1], 16, 64)
	if err != nil {
		return Region{}, false, fmt.Errorf("region: bad maps range %q: %w", fields[0], err)
	}

	var perm Perm
	permStr := fields[1]
	if strings.IndexByte(permStr, 'r') >= 0 {
		perm |= Read
	}
	if strings.IndexByte(permStr, 'w') >= 0 {
		perm |= Write
	}
	if strings.IndexByte(permStr, 'x') >= 0 {
		perm |= Exec
	}

	return Region{Start: Address(lo), End: Address(hi), Perm: perm}, true, nil
}
